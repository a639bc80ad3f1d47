package service

import (
	"github.com/yourorg/studio-media/internal/model"
)

// mergeMedia combines the media a record keeps with the assets a job
// just uploaded. Retained entries keep their order and featured flag;
// new assets append with the sequence continuing and no featured flag,
// except on a brand-new record with nothing retained, where the first
// uploaded asset becomes the featured one.
func mergeMedia(retained, uploaded []model.MediaAsset, isNew bool) []model.MediaAsset {
	merged := make([]model.MediaAsset, 0, len(retained)+len(uploaded))
	merged = append(merged, retained...)

	for _, asset := range uploaded {
		asset.IsFeatured = false
		merged = append(merged, asset)
	}

	if isNew && len(retained) == 0 && len(merged) > 0 {
		merged[0].IsFeatured = true
	}

	return normalizeMedia(merged)
}

// normalizeMedia renumbers display_order contiguously from 0 and keeps
// at most one featured entry (the first one wins)
func normalizeMedia(media []model.MediaAsset) []model.MediaAsset {
	seenFeatured := false
	for i := range media {
		media[i].DisplayOrder = i
		if media[i].IsFeatured {
			if seenFeatured {
				media[i].IsFeatured = false
			}
			seenFeatured = true
		}
	}
	return media
}

// SetFeatured marks the asset at index as the record's featured one,
// clearing the flag everywhere else. Out-of-range indexes are ignored.
func SetFeatured(media []model.MediaAsset, index int) []model.MediaAsset {
	if index < 0 || index >= len(media) {
		return media
	}
	for i := range media {
		media[i].IsFeatured = i == index
	}
	return media
}

// RemoveAsset drops the asset at index and renumbers the remainder.
// A pure local list edit; the provider-side asset is not deleted.
func RemoveAsset(media []model.MediaAsset, index int) []model.MediaAsset {
	if index < 0 || index >= len(media) {
		return media
	}
	media = append(media[:index:index], media[index+1:]...)
	return normalizeMedia(media)
}
