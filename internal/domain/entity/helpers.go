package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/commerce-core/internal/domain"
)

// newID genera identificadores para entidades hijas creadas dentro de un agregado.
var newID = func() string { return uuid.New().String() }

func errInvalidTransition(what, from, to string) error {
	return domain.ErrInvalidTransition.Withf("%s %s -> %s", what, from, to)
}

func utc(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
