// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Caphost Contributors

package errutil_test

import (
	"testing"

	"github.com/samber/oops"

	"github.com/caphost/caphost/pkg/errutil"
)

func TestAssertErrorCode(t *testing.T) {
	err := oops.Code("START_ERROR").Errorf("spawn failed")
	errutil.AssertErrorCode(t, err, "START_ERROR")
}

func TestAssertErrorContext(t *testing.T) {
	err := oops.Code("MANIFEST_NOT_FOUND").
		With("plugin", "csv").
		Errorf("no descriptor on disk")
	errutil.AssertErrorContext(t, err, "plugin", "csv")
}
