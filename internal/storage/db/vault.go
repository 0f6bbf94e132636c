package db

import (
	"context"

	"acm/internal/domain"
)

// Vault exposes the secrets table through the host vault contract
type Vault struct {
	db     *DB
	masked bool
}

// NewVault creates a vault backed by database. When masked is set, State
// reports ids without values, the way hosts hide keys unless exposure is
// enabled.
func NewVault(database *DB, masked bool) *Vault {
	return &Vault{db: database, masked: masked}
}

// Write stores a new secret and returns its id
func (v *Vault) Write(ctx context.Context, key, value, label string) (string, error) {
	return v.db.WriteSecret(ctx, key, value, label)
}

// Find returns the value of secret id under key, or of the active secret
// when id is empty
func (v *Vault) Find(ctx context.Context, key, id string) (string, bool, error) {
	s, err := v.db.GetSecret(ctx, key, id)
	if err != nil || s == nil {
		return "", false, err
	}
	return s.Value, true, nil
}

// State lists every secret grouped by key
func (v *Vault) State(ctx context.Context) (map[string][]domain.SecretEntry, error) {
	stored, err := v.db.ListSecrets(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]domain.SecretEntry, len(stored))
	for key, secrets := range stored {
		entries := make([]domain.SecretEntry, len(secrets))
		for i, s := range secrets {
			entries[i] = domain.SecretEntry{ID: s.ID, Label: s.Label, Active: s.Active}
			if !v.masked {
				entries[i].Value = s.Value
			}
		}
		out[key] = entries
	}
	return out, nil
}

// Rotate makes secret id the active one for key
func (v *Vault) Rotate(ctx context.Context, key, id string) error {
	return v.db.RotateSecret(ctx, key, id)
}
