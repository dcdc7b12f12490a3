package discord

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/cwrk-planet/tempvoice/internal/domain"

	"github.com/bwmarrin/discordgo"
)

// classify maps discordgo failures onto the domain sentinels, keeping the
// original error in the chain.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, discordgo.ErrStateNotFound) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrNotFound, err)
	}

	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w: %w", op, domain.ErrNotFound, err)
		case http.StatusForbidden:
			return fmt.Errorf("%s: %w: %w", op, domain.ErrForbidden, err)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%s: %w: %w", op, domain.ErrRateLimited, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
