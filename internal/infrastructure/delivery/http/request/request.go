// Package request defines and validates HTTP request bodies.
package request

import (
	"descargo/internal/errs"
	"descargo/pkg/urls"
)

// Discover asks for the deliverable formats of a reference.
type Discover struct {
	URL string `json:"url"`
}

func (d *Discover) Validate() error {
	if !urls.IsValid(d.URL) {
		return errs.ErrInvalidReference
	}
	return nil
}

// Fetch asks for one encoding of a reference to be transferred.
type Fetch struct {
	URL      string `json:"url"`
	FormatID string `json:"formatId"`
}

func (f *Fetch) Validate() error {
	if !urls.IsValid(f.URL) {
		return errs.ErrInvalidReference
	}
	if f.FormatID == "" {
		return errs.ErrStaleFormat
	}
	return nil
}

// Cleanup hands delivered artifact paths back for removal.
type Cleanup struct {
	Paths []string `json:"paths"`
}

func (c *Cleanup) Validate() error {
	if len(c.Paths) == 0 {
		return errs.ErrInvalidReference
	}
	return nil
}
