// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package wrappers provides helpers for collecting errors across a sequence
// of registrations or validations.
package wrappers

// Errs keeps the first error reported to it.
type Errs struct {
	Err error
}

// Errored returns true if an error has been recorded.
func (errs *Errs) Errored() bool {
	return errs.Err != nil
}

// Add records the first non-nil error. Later errors are dropped.
func (errs *Errs) Add(errors ...error) {
	if errs.Err != nil {
		return
	}
	for _, err := range errors {
		if err != nil {
			errs.Err = err
			return
		}
	}
}

// Check records err when cond is false.
func (errs *Errs) Check(cond bool, err error) {
	if !cond {
		errs.Add(err)
	}
}
