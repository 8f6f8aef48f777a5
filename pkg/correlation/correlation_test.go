// Copyright (c) 2026 Jeremy Hahn
// Copyright (c) 2026 Automate The Things, LLC
//
// This file is part of go-softu2f.
//
// go-softu2f is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package correlation

import (
	"context"
	"testing"
)

func TestWithCorrelationID(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "abc-123")
	if got := GetCorrelationID(ctx); got != "abc-123" {
		t.Errorf("GetCorrelationID = %q, want abc-123", got)
	}
}

func TestGetCorrelationIDMissing(t *testing.T) {
	if got := GetCorrelationID(context.Background()); got != "" {
		t.Errorf("GetCorrelationID on bare context = %q, want empty", got)
	}
}

func TestEnsureCorrelationID(t *testing.T) {
	ctx, id := EnsureCorrelationID(context.Background())
	if id == "" {
		t.Fatal("EnsureCorrelationID returned empty id")
	}
	if got := GetCorrelationID(ctx); got != id {
		t.Errorf("GetCorrelationID = %q, want %q", got, id)
	}

	// An existing id is preserved.
	ctx2, id2 := EnsureCorrelationID(ctx)
	if id2 != id {
		t.Errorf("EnsureCorrelationID regenerated id: %q != %q", id2, id)
	}
	if ctx2 != ctx {
		t.Error("EnsureCorrelationID replaced context despite existing id")
	}
}
