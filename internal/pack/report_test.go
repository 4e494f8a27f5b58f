package pack

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decision(name, head, target string) UpdateDecision {
	return UpdateDecision{
		Plugin:       Resolve("/packs", PluginSpec{Name: name}),
		HeadCommit:   head,
		TargetCommit: target,
	}
}

func TestHasUpdate(t *testing.T) {
	tests := []struct {
		name string
		d    UpdateDecision
		want bool
	}{
		{name: "head differs from target", d: decision("a", "aaa", "bbb"), want: true},
		{name: "head equals target", d: decision("a", "aaa", "aaa"), want: false},
		{name: "no target resolved", d: decision("a", "aaa", ""), want: false},
		{
			name: "error suppresses update",
			d: UpdateDecision{
				Plugin:       Resolve("/packs", PluginSpec{Name: "a"}),
				HeadCommit:   "aaa",
				TargetCommit: "bbb",
				Err:          errors.New("boom"),
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.d.HasUpdate())
		})
	}
}

func TestBuildReportSortsByName(t *testing.T) {
	r := BuildReport([]UpdateDecision{
		decision("zeta", "a", "b"),
		decision("alpha", "a", "a"),
		decision("mid", "a", "b"),
	})

	names := make([]string, 0, len(r.Decisions))
	for _, d := range r.Decisions {
		names = append(names, d.Plugin.Spec.Name)
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, names)
}

// Every decision lands in exactly one group, and group membership depends
// only on the error state and the head/target comparison.
func TestReportGroupingIsPartition(t *testing.T) {
	failed := UpdateDecision{
		Plugin: Resolve("/packs", PluginSpec{Name: "broken"}),
		Err:    errors.New("clone failed"),
	}
	r := BuildReport([]UpdateDecision{
		decision("pending", "aaa", "bbb"),
		decision("current", "aaa", "aaa"),
		failed,
	})

	require.Len(t, r.Errors(), 1)
	require.Len(t, r.Pending(), 1)
	require.Len(t, r.Current(), 1)
	assert.Equal(t, "broken", r.Errors()[0].Plugin.Spec.Name)
	assert.Equal(t, "pending", r.Pending()[0].Plugin.Spec.Name)
	assert.Equal(t, "current", r.Current()[0].Plugin.Spec.Name)
	assert.Equal(t, []string{"pending"}, r.PendingNames())
}

func TestReportRenderOrder(t *testing.T) {
	failed := UpdateDecision{
		Plugin: Resolve("/packs", PluginSpec{Name: "broken"}),
		Err:    errors.New("clone failed"),
	}
	pending := decision("pending", "aaaaaaaaaaaa", "bbbbbbbbbbbb")
	pending.TargetDescription = "tag v2.0.0"
	pending.ChangeLog = "bbbbbbb feat: new thing"
	current := decision("current", "cccccccccccc", "cccccccccccc")
	current.TargetDescription = "branch main"

	out := BuildReport([]UpdateDecision{current, pending, failed}).Render()

	errIdx := strings.Index(out, "Errors")
	pendIdx := strings.Index(out, "Pending updates")
	curIdx := strings.Index(out, "Up to date")
	require.True(t, errIdx >= 0 && pendIdx >= 0 && curIdx >= 0, "missing section:\n%s", out)
	assert.Less(t, errIdx, pendIdx)
	assert.Less(t, pendIdx, curIdx)

	assert.Contains(t, out, "x broken")
	assert.Contains(t, out, "> pending aaaaaaa -> bbbbbbb (tag v2.0.0)")
	assert.Contains(t, out, "  bbbbbbb feat: new thing")
	assert.Contains(t, out, "- current (ccccccc, branch main)")
}

// Rendering the same decisions twice must produce identical text regardless
// of input order.
func TestReportRenderDeterministic(t *testing.T) {
	ds := []UpdateDecision{
		decision("b", "1", "2"),
		decision("a", "1", "1"),
		decision("c", "1", "2"),
	}
	reversed := []UpdateDecision{ds[2], ds[1], ds[0]}

	assert.Equal(t, BuildReport(ds).Render(), BuildReport(reversed).Render())
}

func TestShort(t *testing.T) {
	assert.Equal(t, "abcdef0", short("abcdef0123456789"))
	assert.Equal(t, "abc", short("abc"))
	assert.Equal(t, "none", short(""))
}
