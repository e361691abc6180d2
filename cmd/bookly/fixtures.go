package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"bookly/internal/app/uow"
	domainresource "bookly/internal/domain/resource"
	"bookly/internal/domain/shared/timeslot"
	domainuser "bookly/internal/domain/user"
	"bookly/internal/infra/security"
)

type fixtures struct {
	Resources []resourceFixture `json:"resources"`
	Users     []userFixture     `json:"users"`
}

type resourceFixture struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Category     string        `json:"category"`
	Capacity     int           `json:"capacity"`
	Status       string        `json:"status"`
	OpeningHours *hoursFixture `json:"opening_hours"`
}

type hoursFixture struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type userFixture struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	Name     string   `json:"name"`
	Password string   `json:"password"`
	Roles    []string `json:"roles"`
}

// loadFixtures seeds resources and users that are not stored yet. A missing file is not an error.
func loadFixtures(ctx context.Context, path string, factory uow.UoWFactory, hasher security.BcryptHasher, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	if len(data) == 0 {
		logger.Warn("fixtures file empty", "path", path)
		return nil
	}
	var fx fixtures
	if err := json.Unmarshal(data, &fx); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}
	return seed(ctx, fx, factory, hasher, logger)
}

func seed(ctx context.Context, fx fixtures, factory uow.UoWFactory, hasher security.BcryptHasher, logger *slog.Logger) error {
	unit, err := factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return err
	}
	execCtx := uow.Attach(ctx, unit)
	now := time.Now()
	imported := 0

	for _, rf := range fx.Resources {
		if _, err := unit.Resources().ByID(execCtx, domainresource.ID(rf.ID)); err == nil {
			continue
		}
		var hours *timeslot.Slot
		if rf.OpeningHours != nil {
			slot, err := timeslot.ParseSlot(rf.OpeningHours.Start, rf.OpeningHours.End)
			if err != nil {
				logger.Error("fixture invalid", "resource_id", rf.ID, "error", err)
				continue
			}
			hours = &slot
		}
		res, err := domainresource.New(domainresource.CreateParams{
			ID:           domainresource.ID(rf.ID),
			Name:         rf.Name,
			Category:     domainresource.Category(rf.Category),
			Capacity:     rf.Capacity,
			Status:       domainresource.Status(rf.Status),
			OpeningHours: hours,
			Now:          now,
		})
		if err != nil {
			logger.Error("fixture invalid", "resource_id", rf.ID, "error", err)
			continue
		}
		if err := unit.Resources().Save(execCtx, res); err != nil {
			_ = unit.Rollback(execCtx)
			return fmt.Errorf("store resource %s: %w", rf.ID, err)
		}
		imported++
	}

	for _, uf := range fx.Users {
		if _, err := unit.Users().ByID(execCtx, domainuser.ID(uf.ID)); err == nil {
			continue
		}
		hash, err := hasher.Hash(uf.Password)
		if err != nil {
			logger.Error("fixture password rejected", "user_id", uf.ID, "error", err)
			continue
		}
		roles := make([]domainuser.Role, 0, len(uf.Roles))
		for _, r := range uf.Roles {
			roles = append(roles, domainuser.Role(r))
		}
		user, err := domainuser.NewUser(domainuser.CreateParams{
			ID:           domainuser.ID(uf.ID),
			Email:        uf.Email,
			Name:         uf.Name,
			PasswordHash: hash,
			Roles:        roles,
			CreatedAt:    now,
		})
		if err != nil {
			logger.Error("fixture invalid", "user_id", uf.ID, "error", err)
			continue
		}
		if err := unit.Users().Save(execCtx, user); err != nil {
			_ = unit.Rollback(execCtx)
			return fmt.Errorf("store user %s: %w", uf.ID, err)
		}
		imported++
	}

	if err := unit.Commit(execCtx); err != nil {
		return fmt.Errorf("commit fixtures: %w", err)
	}
	logger.Info("fixtures imported", "records", imported)
	return nil
}
