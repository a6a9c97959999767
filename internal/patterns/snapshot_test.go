package patterns

import "testing"

func TestNewStore_BuiltinTiersPresent(t *testing.T) {
	s := NewStore()
	snap := s.CurrentSnapshot()
	if snap == nil {
		t.Fatal("expected a published snapshot")
	}
	if len(snap.InTier(TierSafe)) == 0 {
		t.Error("expected at least one SAFE pattern")
	}
	if len(snap.InTier(TierBlocked)) == 0 {
		t.Error("expected at least one BLOCKED pattern")
	}
}

func TestStore_ApplyOverrides_Suppress(t *testing.T) {
	s := NewStore()
	before := s.CurrentSnapshot()
	var id string
	for _, p := range before.InTier(TierSafe) {
		id = p.ID
		break
	}
	if id == "" {
		t.Fatal("expected at least one builtin SAFE pattern to suppress")
	}

	after, err := s.ApplyOverrides(nil, nil, []string{id})
	if err != nil {
		t.Fatalf("ApplyOverrides: %v", err)
	}
	for _, p := range after.InTier(TierSafe) {
		if p.ID == id {
			t.Fatalf("pattern %s should have been suppressed", id)
		}
	}
	if after.Version() <= before.Version() {
		t.Error("expected version to increase after override")
	}
}

func TestStore_ApplyOverrides_AdditionalSafeAndBlocked(t *testing.T) {
	s := NewStore()
	snap, err := s.ApplyOverrides([]string{`^Invoke-MyTool\b`}, []string{`^Invoke-ReallyBadThing\b`}, nil)
	if err != nil {
		t.Fatalf("ApplyOverrides: %v", err)
	}

	foundSafe := false
	for _, p := range snap.InTier(TierSafe) {
		if p.Source == "config" {
			foundSafe = true
		}
	}
	if !foundSafe {
		t.Error("expected a config-sourced SAFE pattern")
	}

	foundBlocked := false
	for _, p := range snap.InTier(TierBlocked) {
		if p.Source == "config" {
			foundBlocked = true
		}
	}
	if !foundBlocked {
		t.Error("expected a config-sourced BLOCKED pattern")
	}
}

func TestSnapshot_HashChangesWithOverrides(t *testing.T) {
	s := NewStore()
	h1 := s.CurrentSnapshot().Hash()
	snap2, err := s.ApplyOverrides([]string{`^Invoke-Something\b`}, nil, nil)
	if err != nil {
		t.Fatalf("ApplyOverrides: %v", err)
	}
	if snap2.Hash() == h1 {
		t.Error("expected hash to change after adding a pattern")
	}
}

func TestBuiltin_AllPatternsCompile(t *testing.T) {
	for _, p := range Builtin() {
		if p.Compiled == nil {
			t.Errorf("pattern %s: nil compiled regexp", p.ID)
		}
		if !p.Tier.Blocked() && p.Tier != TierSafe && p.Tier != TierRisky {
			t.Errorf("pattern %s: unexpected tier %s", p.ID, p.Tier)
		}
	}
}
