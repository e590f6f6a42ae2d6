package main

import (
	"context"
	"crypto/rand"

	"github.com/myrjola/aitrainer/internal/contexthelpers"
	"github.com/myrjola/aitrainer/internal/plan"
	"github.com/myrjola/aitrainer/internal/trainer"
)

const (
	wizardSessionKey   = "trainer_state"
	ownerKeySessionKey = "plan_owner_key"
)

// wizard restores the visitor's wizard from the session, or starts a new one.
func (app *application) wizard(ctx context.Context) *trainer.Wizard {
	state, ok := app.sessionManager.Get(ctx, wizardSessionKey).(trainer.State)
	if !ok {
		return trainer.NewWizard()
	}
	return trainer.Restore(state)
}

func (app *application) saveWizard(ctx context.Context, w *trainer.Wizard) {
	app.sessionManager.Put(ctx, wizardSessionKey, w.State())
}

// ownerKey returns the random key that ties anonymous plans to the session, creating it on first use.
// The key survives token renewal on sign-in so that the plans can be claimed.
func (app *application) ownerKey(ctx context.Context) string {
	key := app.sessionManager.GetString(ctx, ownerKeySessionKey)
	if key == "" {
		key = rand.Text()
		app.sessionManager.Put(ctx, ownerKeySessionKey, key)
	}
	return key
}

func (app *application) planOwner(ctx context.Context) plan.Owner {
	return plan.Owner{
		UserID: contexthelpers.AuthenticatedUserID(ctx),
		Key:    app.ownerKey(ctx),
	}
}
