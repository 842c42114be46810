// Package geo performs the emergency click: it asks for a location fix and
// reports the click.
package geo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmynk/emergencyclick/internal/models"
)

// Messages shown in place of a location.
const (
	IdleText             = "Waiting for emergency click..."
	PermissionDeniedText = "Permission denied"
	FetchErrorText       = "Error fetching location"
)

// ErrPermissionDenied is returned when the user refuses location access.
var ErrPermissionDenied = errors.New("location permission denied")

// Fix is one position reading.
type Fix struct {
	Latitude  float64
	Longitude float64
}

// Provider supplies the device location.
type Provider interface {
	// RequestPermission reports whether foreground location access is granted.
	RequestPermission(ctx context.Context) (bool, error)
	CurrentFix(ctx context.Context) (Fix, error)
}

// Reporter records a click somewhere durable.
type Reporter interface {
	RecordClick(ctx context.Context, click *models.Click) error
}

// StaticProvider always grants permission and returns the same fix.
type StaticProvider struct {
	Fix Fix
	// Denied makes RequestPermission refuse.
	Denied bool
}

func (p StaticProvider) RequestPermission(context.Context) (bool, error) {
	return !p.Denied, nil
}

func (p StaticProvider) CurrentFix(context.Context) (Fix, error) {
	if p.Fix.Latitude < -90 || p.Fix.Latitude > 90 || p.Fix.Longitude < -180 || p.Fix.Longitude > 180 {
		return Fix{}, fmt.Errorf("coordinates out of range: %v, %v", p.Fix.Latitude, p.Fix.Longitude)
	}
	return p.Fix, nil
}

// Result is what the home screen displays after a click.
type Result struct {
	// Text is the location line or one of the error texts.
	Text string
	// When is the local time of the fix, empty on failure.
	When  string
	Click *models.Click
}

// Clicker turns a button press into a located, reported click.
type Clicker struct {
	provider Provider
	reporter Reporter
	log      *slog.Logger
	now      func() time.Time
}

// NewClicker creates a Clicker. reporter may be nil to only display the fix.
func NewClicker(provider Provider, reporter Reporter, logger *slog.Logger) *Clicker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Clicker{
		provider: provider,
		reporter: reporter,
		log:      logger.WithGroup("geo"),
		now:      time.Now,
	}
}

// Click performs one emergency click for userEmail. The returned Result is
// always displayable; err is non-nil when the location could not be read or
// the click could not be reported.
func (c *Clicker) Click(ctx context.Context, userEmail string) (Result, error) {
	granted, err := c.provider.RequestPermission(ctx)
	if err != nil || !granted {
		if err == nil {
			err = ErrPermissionDenied
		}
		c.log.Warn("location permission refused", "error", err)
		return Result{Text: PermissionDeniedText}, err
	}

	fix, err := c.provider.CurrentFix(ctx)
	if err != nil {
		c.log.Error("fetching location failed", "error", err)
		return Result{Text: FetchErrorText}, err
	}

	click := &models.Click{
		UserEmail:  userEmail,
		Latitude:   fix.Latitude,
		Longitude:  fix.Longitude,
		CapturedAt: c.now(),
	}
	res := Result{
		Text:  click.LocationText(),
		When:  click.CapturedAt.Local().Format(time.DateTime),
		Click: click,
	}

	if c.reporter == nil {
		return res, nil
	}
	if err := c.reporter.RecordClick(ctx, click); err != nil {
		c.log.Error("reporting click failed", "error", err)
		return res, fmt.Errorf("report click: %w", err)
	}
	c.log.Info("click reported", "click_id", click.ID, "location", res.Text)
	return res, nil
}
