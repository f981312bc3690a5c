package firestore

import "github.com/gridmetrics-lab/derrev/pkg/domain/interfaces"

var (
	ErrNotFound  = interfaces.ErrNotFound
	ErrSlugTaken = interfaces.ErrSlugTaken
)
