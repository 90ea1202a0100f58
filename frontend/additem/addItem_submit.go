package additem

import (
	"context"
	"time"

	"fridge/models"
)

const DefaultCallTimeout = 10 * time.Second

// Submitter is the single path through which inventory items are created.
type Submitter struct {
	creator InventoryCreator
	timeout time.Duration
}

func NewSubmitter(creator InventoryCreator, timeout time.Duration) *Submitter {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Submitter{creator: creator, timeout: timeout}
}

// SubmitItem makes exactly one creation attempt bounded by the call timeout.
// Drafts without a name or with a quantity below one are rejected before the
// creator is called; a blank category becomes "other".
func (s *Submitter) SubmitItem(ctx context.Context, draft models.DraftItem) (string, error) {
	draft, err := submittable(draft)
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	id, err := s.creator.CreateInventoryItem(ctx, draft)
	if err != nil {
		return "", classify(KindSubmission, "submit item", err)
	}
	return id, nil
}
