package palette

import "testing"

func TestColorFor_NeverEscaped(t *testing.T) {
	for _, max := range []int{1, 10, 30, 100, 1000} {
		if got := ColorFor(max, max); got != NeverEscaped {
			t.Fatalf("ColorFor(%d,%d)=%v want %v", max, max, got, NeverEscaped)
		}
	}
}

func TestColorFor_Wraps(t *testing.T) {
	const max = 100
	if len(Wool) != 15 {
		t.Fatalf("palette length=%d want 15", len(Wool))
	}
	for k := 0; k < max; k++ {
		if got, want := ColorFor(k, max), Wool[k%15]; got != want {
			t.Fatalf("ColorFor(%d)=%v want %v", k, got, want)
		}
	}
}

func TestColorFor_AliasMatchesNeverEscaped(t *testing.T) {
	if Wool[AliasIndex] != NeverEscaped {
		t.Fatalf("alias slot %d = %v, want %v", AliasIndex, Wool[AliasIndex], NeverEscaped)
	}
	if ColorFor(AliasIndex, 50) != ColorFor(50, 50) {
		t.Fatalf("alias slot should render like a bounded point")
	}
	if ColorFor(AliasIndex+len(Wool), 50) != NeverEscaped {
		t.Fatalf("alias should repeat every %d iterations", len(Wool))
	}
}

func TestParseBlock_RoundTripsEveryBlock(t *testing.T) {
	for _, b := range Blocks() {
		got, err := ParseBlock(b.String())
		if err != nil {
			t.Fatalf("ParseBlock(%q): %v", b.String(), err)
		}
		if got != b {
			t.Fatalf("ParseBlock(%q)=%v want %v", b.String(), got, b)
		}
	}
	if b, err := ParseBlock("minecraft:RED_WOOL"); err != nil || b != RedWool {
		t.Fatalf("namespaced parse: %v %v", b, err)
	}
	if _, err := ParseBlock("bedrock"); err == nil {
		t.Fatalf("expected unknown block error")
	}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("wool")
	if err != nil || !k.Palette {
		t.Fatalf("wool: %+v %v", k, err)
	}
	if got := k.Resolve(3, 10); got != Wool[3] {
		t.Fatalf("palette resolve=%v", got)
	}

	k, err = ParseKind("diamond_block")
	if err != nil || k.Palette || k.Fixed != DiamondBlock {
		t.Fatalf("fixed: %+v %v", k, err)
	}
	if got := k.Resolve(10, 10); got != DiamondBlock {
		t.Fatalf("fixed resolve=%v", got)
	}

	if _, err := ParseKind("air"); err == nil {
		t.Fatalf("expected air to be rejected")
	}
}
