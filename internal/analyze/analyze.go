// Package analyze turns the stored probe history into a human-readable
// outage and success-rate report. Analysis is a pure pass over the
// ordered history; nothing derived here is ever persisted.
package analyze

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"netmon/internal/lib/sl"
	"netmon/internal/records"
	"netmon/internal/store"
)

// Outage is a maximal run of consecutive failing checks of one probe
// category. It owns copies of the relevant checks, so it stays valid
// independently of the store it was derived from.
type Outage struct {
	// Start and End are display markers. They bound the whole
	// category-filtered view, not the failing run itself; see the note
	// in outages below.
	Start records.Check
	// End is nil while the outage is still ongoing.
	End *records.Check
	// All holds the failing checks of the run.
	All []records.Check
}

func (o Outage) String() string {
	var b strings.Builder
	if o.End != nil {
		fmt.Fprintf(&b, "From %s To %s\n", fmtTime(o.Start.Time()), fmtTime(o.End.Time()))
	} else {
		fmt.Fprintf(&b, "From %s STILL ONGOING\n", fmtTime(o.Start.Time()))
	}
	fmt.Fprintf(&b, "Checks: %d\n", len(o.All))
	fmt.Fprintf(&b, "Type: %s\n", o.Start.Type())
	return b.String()
}

// Analyze generates the full report for the given store: general
// statistics, per-category and per-IP-family sections, the outage list
// and the store integrity hashes. Either the whole report is returned
// or an error; there are no partial reports.
func Analyze(st *store.Store) (string, error) {
	checks := st.Checks()
	v4, v6 := familyViews(checks)

	var b strings.Builder
	barrier(&b, "General")
	statBlock(&b, checks)
	barrier(&b, "HTTP")
	statBlock(&b, typeView(checks, records.TypeHTTP))
	barrier(&b, "ICMPv4")
	statBlock(&b, typeView(checks, records.TypeICMPv4))
	barrier(&b, "ICMPv6")
	statBlock(&b, typeView(checks, records.TypeICMPv6))
	barrier(&b, "IPv4")
	statBlock(&b, v4)
	barrier(&b, "IPv6")
	statBlock(&b, v6)
	barrier(&b, "Outages")
	outages(&b, checks)
	barrier(&b, "Store Metadata")
	if err := storeMeta(&b, st); err != nil {
		return "", err
	}

	return b.String(), nil
}

// barrier writes a titled section divider: ten '=' then the title,
// padded with '=' to a fixed overall width.
func barrier(b *strings.Builder, title string) {
	padded := fmt.Sprintf(" %s ", title)
	if rest := 90 - len(padded); rest > 0 {
		padded += strings.Repeat("=", rest)
	}
	fmt.Fprintf(b, "%s%s\n", strings.Repeat("=", 10), padded)
}

func keyValueWrite(b *strings.Builder, title string, content any) {
	fmt.Fprintf(b, "%-20s: %-78s\n", title, fmt.Sprint(content))
}

// statBlock writes the standard statistics block for an ordered,
// filtered view of the history. An empty view yields just "None"; the
// success ratio is only ever computed against a non-empty view.
func statBlock(b *strings.Builder, all []records.Check) {
	if len(all) == 0 {
		b.WriteString("None\n\n")
		return
	}
	successes := 0
	for _, c := range all {
		if c.IsSuccess() {
			successes++
		}
	}
	keyValueWrite(b, "checks", fmt.Sprintf("%08d", len(all)))
	keyValueWrite(b, "checks ok", fmt.Sprintf("%08d", successes))
	keyValueWrite(b, "checks bad", fmt.Sprintf("%08d", len(all)-successes))
	keyValueWrite(b, "success ratio", fmt.Sprintf("%03.2f%%", float64(successes)/float64(len(all))*100))
	keyValueWrite(b, "first check at", fmtTime(all[0].Time()))
	keyValueWrite(b, "last check at", fmtTime(all[len(all)-1].Time()))
	b.WriteString("\n")
}

// typeView filters the history down to one probe category, preserving
// order. Checks of unknown category match no view.
func typeView(checks []records.Check, t records.CheckType) []records.Check {
	var out []records.Check
	for _, c := range checks {
		if c.Type() == t {
			out = append(out, c)
		}
	}
	return out
}

// familyViews splits the history by IP family in a single pass. A check
// whose family flags are ambiguous lands in neither view and is warned
// about exactly once, identified by its content hash.
func familyViews(checks []records.Check) (v4, v6 []records.Check) {
	for _, c := range checks {
		family, err := c.Family()
		if err != nil {
			slog.Warn("check has bad IP family flags, excluding it from family statistics",
				slog.String("hash", c.Hash()), sl.Error(err))
			continue
		}
		if family == records.FamilyIPv4 {
			v4 = append(v4, c)
		} else {
			v6 = append(v6, c)
		}
	}
	return v4, v6
}

// outages reconstructs and prints the outage list. Failing runs are
// detected per category over the category-filtered view.
//
// The start and end markers intentionally come from the first and last
// element of the whole category view rather than from the failing run
// itself. That looks wrong, and probably is, but the displayed ranges
// have always worked this way and consumers may rely on them.
func outages(b *strings.Builder, checks []records.Check) {
	failsExist := false
	for _, c := range checks {
		if !c.IsSuccess() {
			failsExist = true
			break
		}
	}
	if !failsExist {
		b.WriteString("None\n\n")
		return
	}

	var all []Outage
	for _, checkType := range records.AllTypes() {
		view := typeView(checks, checkType)
		for _, group := range failGroups(view) {
			end := view[len(view)-1]
			all = append(all, Outage{
				Start: view[0],
				End:   &end,
				All:   group,
			})
		}
	}

	for _, outage := range all {
		b.WriteString(outage.String())
		b.WriteString("\n")
	}
}

// failGroups collects the maximal runs of consecutive failing checks
// within an ordered view. Runs are broken only by a successful check.
func failGroups(checks []records.Check) [][]records.Check {
	var groups [][]records.Check
	var current []records.Check
	for _, c := range checks {
		if !c.IsSuccess() {
			current = append(current, c)
			continue
		}
		if len(current) > 0 {
			groups = append(groups, current)
			current = nil
		}
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

func storeMeta(b *strings.Builder, st *store.Store) error {
	keyValueWrite(b, "Hash Datastructure", st.Hash())
	fileHash, err := st.FileHash()
	if err != nil {
		return fmt.Errorf("hash store file: %w", err)
	}
	keyValueWrite(b, "Hash Store File", fileHash)
	return nil
}

func fmtTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}
