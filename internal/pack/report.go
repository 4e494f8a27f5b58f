package pack

import (
	"fmt"
	"sort"
	"strings"
)

// UpdateDecision captures what an update run concluded for one plugin.
type UpdateDecision struct {
	// Plugin is the resolved plugin the decision applies to.
	Plugin ResolvedPlugin

	// HeadCommit is the commit currently checked out.
	HeadCommit string

	// TargetCommit is the commit the version constraint resolves to.
	TargetCommit string

	// TargetDescription is the human label of the resolved version
	// (e.g. "tag v1.2.0", "branch main", "frozen").
	TargetDescription string

	// ChangeLog holds the rendered commit range when an update is
	// pending, or newer-tag detail when the constraint is already
	// satisfied.
	ChangeLog string

	// Warnings holds non-fatal stderr output accumulated for the plugin.
	Warnings []string

	// Err is the plugin-scoped failure, if any.
	Err error
}

// HasUpdate reports whether there is anything to apply. Head equal to
// target means nothing to do; this single predicate drives both report
// grouping and whether a checkout runs.
func (d UpdateDecision) HasUpdate() bool {
	return d.Err == nil && d.TargetCommit != "" && d.HeadCommit != d.TargetCommit
}

// Report is the grouped, human-reviewable summary of an update run.
type Report struct {
	// Decisions is sorted by plugin name; job completion order is
	// nondeterministic and must not leak into presentation.
	Decisions []UpdateDecision
}

// BuildReport sorts decisions by name and wraps them in a Report.
func BuildReport(decisions []UpdateDecision) Report {
	sorted := make([]UpdateDecision, len(decisions))
	copy(sorted, decisions)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Plugin.Spec.Name < sorted[j].Plugin.Spec.Name
	})
	return Report{Decisions: sorted}
}

// Errors returns the decisions that failed.
func (r Report) Errors() []UpdateDecision {
	var out []UpdateDecision
	for _, d := range r.Decisions {
		if d.Err != nil {
			out = append(out, d)
		}
	}
	return out
}

// Pending returns the decisions with an update to apply.
func (r Report) Pending() []UpdateDecision {
	var out []UpdateDecision
	for _, d := range r.Decisions {
		if d.HasUpdate() {
			out = append(out, d)
		}
	}
	return out
}

// Current returns the decisions that are already at their target.
func (r Report) Current() []UpdateDecision {
	var out []UpdateDecision
	for _, d := range r.Decisions {
		if d.Err == nil && !d.HasUpdate() {
			out = append(out, d)
		}
	}
	return out
}

// PendingNames returns the names of plugins with a pending update.
func (r Report) PendingNames() []string {
	pending := r.Pending()
	names := make([]string, 0, len(pending))
	for _, d := range pending {
		names = append(names, d.Plugin.Spec.Name)
	}
	return names
}

// Render produces the textual report. Errors come first, pending updates
// second, unchanged plugins last, so the most actionable information sits
// at the top.
func (r Report) Render() string {
	var b strings.Builder

	if errs := r.Errors(); len(errs) > 0 {
		fmt.Fprintf(&b, "Errors %s\n", strings.Repeat("=", 40))
		for _, d := range errs {
			fmt.Fprintf(&b, "x %s\n", d.Plugin.Spec.Name)
			fmt.Fprintf(&b, "  %v\n", d.Err)
			writeWarnings(&b, d.Warnings)
		}
		b.WriteString("\n")
	}

	if pending := r.Pending(); len(pending) > 0 {
		fmt.Fprintf(&b, "Pending updates %s\n", strings.Repeat("=", 31))
		for _, d := range pending {
			fmt.Fprintf(&b, "> %s %s -> %s (%s)\n",
				d.Plugin.Spec.Name, short(d.HeadCommit), short(d.TargetCommit), d.TargetDescription)
			writeIndented(&b, d.ChangeLog)
			writeWarnings(&b, d.Warnings)
		}
		b.WriteString("\n")
	}

	if current := r.Current(); len(current) > 0 {
		fmt.Fprintf(&b, "Up to date %s\n", strings.Repeat("=", 36))
		for _, d := range current {
			fmt.Fprintf(&b, "- %s (%s, %s)\n",
				d.Plugin.Spec.Name, short(d.HeadCommit), d.TargetDescription)
			writeIndented(&b, d.ChangeLog)
		}
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

// writeIndented writes a multi-line detail block indented by two spaces.
func writeIndented(b *strings.Builder, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	for _, line := range strings.Split(text, "\n") {
		fmt.Fprintf(b, "  %s\n", line)
	}
}

// writeWarnings writes accumulated warnings indented under a plugin block.
func writeWarnings(b *strings.Builder, warnings []string) {
	for _, w := range warnings {
		for _, line := range strings.Split(strings.TrimSpace(w), "\n") {
			fmt.Fprintf(b, "  warning: %s\n", line)
		}
	}
}

// short abbreviates a commit hash for display.
func short(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	if hash == "" {
		return "none"
	}
	return hash
}
