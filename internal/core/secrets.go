package core

import (
	"context"
	"fmt"
	"strings"

	"acm/internal/domain"
)

// LinkSecret makes the profile's key the active vault secret for its source
// and records the vault id on the profile. A profile without a key links
// nothing.
//
// A recorded id that the vault still knows is rotated in. Otherwise a secret
// holding the same value is reused, and only when none exists is a new one
// written.
func LinkSecret(ctx context.Context, vault Vault, p *domain.Profile) error {
	value := strings.TrimSpace(p.Key)
	if value == "" {
		return nil
	}
	source := p.NormalizedSource()
	key := source.SecretKey()

	state, err := vault.State(ctx)
	if err != nil {
		return fmt.Errorf("%w: reading state: %w", domain.ErrVault, err)
	}
	secrets := state[key]

	if known := p.SecretID(); known != "" && hasSecret(secrets, known) {
		return rotate(ctx, vault, key, known)
	}

	label := "ACM: " + p.Name
	if strings.TrimSpace(p.Name) == "" {
		label = "ACM: " + domain.SourceLabel(string(source))
	}
	id, err := EnsureSecret(ctx, vault, key, value, label)
	if err != nil {
		return err
	}
	p.SetSecretID(key, id)
	return nil
}

// EnsureSecret makes value the active secret under key, reusing an existing
// secret with the same value when there is one, and returns its id
func EnsureSecret(ctx context.Context, vault Vault, key, value, label string) (string, error) {
	state, err := vault.State(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: reading state: %w", domain.ErrVault, err)
	}

	id, err := findSecretByValue(ctx, vault, key, state[key], value)
	if err != nil {
		return "", err
	}
	if id != "" {
		if err := rotate(ctx, vault, key, id); err != nil {
			return "", err
		}
		return id, nil
	}

	id, err = vault.Write(ctx, key, value, label)
	if err != nil {
		return "", fmt.Errorf("%w: writing %s: %w", domain.ErrVault, key, err)
	}
	return id, nil
}

func findSecretByValue(ctx context.Context, vault Vault, key string, secrets []domain.SecretEntry, value string) (string, error) {
	for _, s := range secrets {
		if s.ID != "" && s.Value == value {
			return s.ID, nil
		}
	}

	// Masked vaults need one read per secret. Skip the scan unless a sample
	// shows that reads return values at all.
	sample := ""
	for _, s := range secrets {
		if s.ID != "" {
			sample = s.ID
			break
		}
	}
	if sample == "" {
		return "", nil
	}
	sampled, found, err := vault.Find(ctx, key, sample)
	if err != nil {
		return "", fmt.Errorf("%w: reading %s: %w", domain.ErrVault, key, err)
	}
	if !found || sampled == "" {
		return "", nil
	}
	if sampled == value {
		return sample, nil
	}

	for _, s := range secrets {
		if s.ID == "" || s.ID == sample {
			continue
		}
		v, found, err := vault.Find(ctx, key, s.ID)
		if err != nil {
			return "", fmt.Errorf("%w: reading %s: %w", domain.ErrVault, key, err)
		}
		if found && v == value {
			return s.ID, nil
		}
	}
	return "", nil
}

func hasSecret(secrets []domain.SecretEntry, id string) bool {
	for _, s := range secrets {
		if s.ID == id {
			return true
		}
	}
	return false
}

func rotate(ctx context.Context, vault Vault, key, id string) error {
	r, ok := vault.(Rotator)
	if !ok {
		return nil
	}
	if err := r.Rotate(ctx, key, id); err != nil {
		return fmt.Errorf("%w: rotating %s: %w", domain.ErrVault, key, err)
	}
	return nil
}
