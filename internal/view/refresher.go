package view

import (
	"context"

	log "github.com/sirupsen/logrus"

	"taskboard/internal/model"
)

// Refresher receives the refresh signal emitted by every mutation.
type Refresher interface {
	Refresh(ctx context.Context, signal model.Refresh)
}

// NopRefresher is used when reads are not cached; the next read already hits storage.
type NopRefresher struct{}

func (NopRefresher) Refresh(_ context.Context, signal model.Refresh) {
	log.WithFields(log.Fields{
		"scope":    signal.Scope,
		"board_id": signal.BoardID,
		"owner_id": signal.OwnerID,
	}).Debug("refresh")
}
