package orchestrator

import (
	"time"

	"github.com/samber/lo"

	"github.com/goldenfleet/goldenctl/pkg/entity"
	goldenerrors "github.com/goldenfleet/goldenctl/pkg/errors"
	"github.com/goldenfleet/goldenctl/pkg/terminal"
)

// PrintSummary renders the per-group, per-host outcome table every
// command ends with. Failed hosts show their error; verbose mode adds
// the error taxonomy kind.
func PrintSummary(t *terminal.Terminal, runs []GroupRun) {
	for _, run := range runs {
		t.Printf("\ngroup %s: %s\n", run.Group.Name, colorState(t, run.State))
		for _, r := range run.Results {
			t.Printf("  %-16s %-7s %s  (%s)\n", r.Host, r.Role, colorOutcome(t, r), r.Duration.Round(time.Millisecond))
			if r.Err != nil {
				t.Printf("    %s\n", t.Red(r.Err.Error()))
				t.Vprintf("    kind: %s\n", goldenerrors.Kind(r.Err))
			}
		}
	}

	results := lo.FlatMap(runs, func(run GroupRun, _ int) []entity.OperationResult {
		return run.Results
	})
	succeeded := lo.CountBy(results, func(r entity.OperationResult) bool { return r.Succeeded })
	failed := len(results) - succeeded
	if failed == 0 {
		t.Printf("\n%s\n", t.Green("%d host(s) OK", succeeded))
	} else {
		t.Printf("\n%s\n", t.Red("%d host(s) OK, %d failed", succeeded, failed))
	}
}

func colorState(t *terminal.Terminal, state entity.GroupState) string {
	switch state {
	case entity.GroupFailed:
		return t.Red(string(state))
	case entity.GroupDone, entity.GroupExported:
		return t.Green(string(state))
	default:
		return t.Yellow(string(state))
	}
}

func colorOutcome(t *terminal.Terminal, r entity.OperationResult) string {
	if r.Succeeded {
		return t.Green("OK")
	}
	return t.Red("FAILED")
}
