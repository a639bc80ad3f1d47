package model

// SubmitRequest represents the form fields of an upload submission.
// Media files and the retained media list arrive alongside it in the
// multipart body.
type SubmitRequest struct {
	Title       string `json:"title" form:"title" binding:"required"`
	Description string `json:"description" form:"description"`
	CategoryID  string `json:"category_id" form:"category_id"`
	Status      string `json:"status" form:"status" binding:"omitempty,oneof=draft published"`
	PostID      string `json:"post_id" form:"post_id"`
}

// SubmitResponse acknowledges a started upload job
type SubmitResponse struct {
	JobID string `json:"job_id"`
}
