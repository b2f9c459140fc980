// Package orchestrator fans the export/import/apply/validate operations
// out across server groups, isolating failures per host and per group.
package orchestrator

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/samber/lo"

	"github.com/goldenfleet/goldenctl/pkg/entity"
	goldenerrors "github.com/goldenfleet/goldenctl/pkg/errors"
	"github.com/goldenfleet/goldenctl/pkg/redfish"
	"github.com/goldenfleet/goldenctl/pkg/terminal"
)

// FileStore is the persistence collaborator: profile documents in, out.
type FileStore interface {
	ReadProfile(path string) ([]byte, error)
	WriteProfile(path string, data []byte) error
}

// GroupRun is one group's trip through the state machine plus its
// per-host results.
type GroupRun struct {
	Group   entity.Group
	State   entity.GroupState
	Results []entity.OperationResult
}

type Orchestrator struct {
	Files   FileStore
	Term    *terminal.Terminal
	Config  *entity.RunConfig
	Dialect redfish.Dialect

	// NewClient is swappable so tests can attach httpmock to every
	// client the orchestrator creates.
	NewClient func(entity.HostEndpoint, entity.ConnectionOptions) *redfish.Client
}

func New(files FileStore, t *terminal.Terminal, cfg *entity.RunConfig) *Orchestrator {
	return &Orchestrator{
		Files:     files,
		Term:      t,
		Config:    cfg,
		Dialect:   redfish.DellDialect{},
		NewClient: redfish.NewClient,
	}
}

// Export runs the profile export for every group's source and persists
// each document at the group's template path. A failing group is marked
// Failed and the rest continue.
func (o *Orchestrator) Export(groups []entity.Group) []GroupRun {
	runs := []GroupRun{}
	for _, g := range groups {
		run := GroupRun{Group: g, State: entity.GroupPending}
		_ = o.exportGroup(&run)
		runs = append(runs, run)
	}
	return runs
}

func (o *Orchestrator) exportGroup(run *GroupRun) entity.ProfileDocument {
	g := run.Group
	run.State = entity.GroupExporting
	o.Term.Vprintf("[%s] exporting golden template from %s\n", g.Name, g.Source.IP)

	start := time.Now()
	doc, err := o.exportSource(g)
	if err == nil {
		err = o.Files.WriteProfile(g.TemplatePath, doc)
	}
	run.Results = append(run.Results, entity.OperationResult{
		Group:     g.Name,
		Host:      g.Source.IP,
		Role:      entity.RoleSource,
		Succeeded: err == nil,
		Err:       err,
		Duration:  time.Since(start),
	})
	if err != nil {
		run.State = entity.GroupFailed
		return nil
	}
	run.State = entity.GroupExported
	o.Term.Vprintf("[%s] template written to %s (%d bytes)\n", g.Name, g.TemplatePath, len(doc))
	return doc
}

func (o *Orchestrator) exportSource(g entity.Group) (entity.ProfileDocument, error) {
	client := o.NewClient(g.Source, o.Config.Connection)
	if _, err := client.Login(o.Dialect); err != nil {
		return nil, goldenerrors.WrapAndTrace(err)
	}
	defer client.Logout()

	exporter := redfish.Exporter{
		Client:  client,
		Dialect: o.Dialect,
		Conn:    o.Config.Connection,
		Observe: o.observeJob(g.Name, g.Source.IP),
	}
	s := o.Term.NewSpinner(fmt.Sprintf("exporting from %s", g.Source.IP))
	doc, err := exporter.Export(o.Config.Export)
	s.Stop()
	if err != nil {
		return nil, goldenerrors.WrapAndTrace(err)
	}
	return doc, nil
}

// Import applies each group's persisted template to all of its targets.
// overridePath, when non-empty, substitutes for every group's template
// path (legacy `import <file>` invocation).
func (o *Orchestrator) Import(groups []entity.Group, overridePath string) []GroupRun {
	runs := []GroupRun{}
	for _, g := range groups {
		run := GroupRun{Group: g, State: entity.GroupPending}

		path := g.TemplatePath
		if overridePath != "" {
			path = overridePath
		}
		doc, err := o.Files.ReadProfile(path)
		if err != nil {
			run.State = entity.GroupFailed
			run.Results = append(run.Results, entity.OperationResult{
				Group: g.Name, Host: g.Source.IP, Role: entity.RoleSource, Err: err,
			})
			runs = append(runs, run)
			continue
		}
		o.importGroup(&run, doc)
		runs = append(runs, run)
	}
	return runs
}

// importGroup fans out across the group's targets, one worker per
// target, joining results over a channel so accumulation stays
// single-threaded.
func (o *Orchestrator) importGroup(run *GroupRun, doc entity.ProfileDocument) {
	g := run.Group
	run.State = entity.GroupImporting
	o.Term.Vprintf("[%s] importing template to %d target(s)\n", g.Name, len(g.Targets))

	resultChan := make(chan entity.OperationResult)
	for _, target := range g.Targets {
		go func(tgt entity.HostEndpoint) {
			resultChan <- o.importTarget(g.Name, tgt, doc)
		}(target)
	}

	bar := o.Term.NewProgressBar(fmt.Sprintf("[%s] importing", g.Name), len(g.Targets))
	for range g.Targets {
		run.Results = append(run.Results, <-resultChan)
		_ = bar.Add(1)
	}

	if lo.EveryBy(run.Results, func(r entity.OperationResult) bool { return r.Succeeded }) {
		run.State = entity.GroupDone
	} else {
		run.State = entity.GroupFailed
	}
}

func (o *Orchestrator) importTarget(group string, target entity.HostEndpoint, doc entity.ProfileDocument) entity.OperationResult {
	start := time.Now()
	err := o.importOne(group, target, doc)
	return entity.OperationResult{
		Group:     group,
		Host:      target.IP,
		Role:      entity.RoleTarget,
		Succeeded: err == nil,
		Err:       err,
		Duration:  time.Since(start),
	}
}

func (o *Orchestrator) importOne(group string, target entity.HostEndpoint, doc entity.ProfileDocument) error {
	client := o.NewClient(target, o.Config.Connection)
	if _, err := client.Login(o.Dialect); err != nil {
		return goldenerrors.WrapAndTrace(err)
	}
	defer client.Logout()

	importer := redfish.Importer{
		Client:  client,
		Dialect: o.Dialect,
		Conn:    o.Config.Connection,
		Observe: o.observeJob(group, target.IP),
	}
	return importer.Import(doc, o.Config.Import)
}

// Apply is export immediately followed by import, feeding the freshly
// exported document to the targets instead of any previously persisted
// template.
func (o *Orchestrator) Apply(groups []entity.Group) []GroupRun {
	runs := []GroupRun{}
	for _, g := range groups {
		run := GroupRun{Group: g, State: entity.GroupPending}
		doc := o.exportGroup(&run)
		if run.State == entity.GroupExported {
			o.importGroup(&run, doc)
		}
		runs = append(runs, run)
	}
	return runs
}

// Validate logs in to every host in scope and reads the manager
// resource. No job is ever submitted, so repeated runs are free of side
// effects.
func (o *Orchestrator) Validate(groups []entity.Group) []GroupRun {
	runs := []GroupRun{}
	for _, g := range groups {
		run := GroupRun{Group: g, State: entity.GroupPending}
		hosts := []struct {
			endpoint entity.HostEndpoint
			role     entity.HostRole
		}{{g.Source, entity.RoleSource}}
		for _, tgt := range g.Targets {
			hosts = append(hosts, struct {
				endpoint entity.HostEndpoint
				role     entity.HostRole
			}{tgt, entity.RoleTarget})
		}

		for _, h := range hosts {
			start := time.Now()
			err := o.validateHost(g.Name, h.endpoint)
			run.Results = append(run.Results, entity.OperationResult{
				Group:     g.Name,
				Host:      h.endpoint.IP,
				Role:      h.role,
				Succeeded: err == nil,
				Err:       err,
				Duration:  time.Since(start),
			})
		}

		if lo.EveryBy(run.Results, func(r entity.OperationResult) bool { return r.Succeeded }) {
			run.State = entity.GroupDone
		} else {
			run.State = entity.GroupFailed
		}
		runs = append(runs, run)
	}
	return runs
}

func (o *Orchestrator) validateHost(group string, endpoint entity.HostEndpoint) error {
	client := o.NewClient(endpoint, o.Config.Connection)
	if _, err := client.Login(o.Dialect); err != nil {
		return goldenerrors.WrapAndTrace(err)
	}
	defer client.Logout()

	generation, err := redfish.Probe(client, o.Dialect)
	if err != nil {
		return goldenerrors.WrapAndTrace(err)
	}
	o.Term.Vprintf("[%s] %s reachable (generation %d)\n", group, endpoint.IP, generation)
	return nil
}

func (o *Orchestrator) observeJob(group, host string) func(entity.Job) {
	return func(j entity.Job) {
		o.Term.Vprintf("[%s] %s job %s: %d%% %s\n", group, host, j.ID, j.PercentComplete, j.Message)
	}
}

// AllSucceeded reports whether every host in every run passed; the CLI
// exit status hangs off this.
func AllSucceeded(runs []GroupRun) bool {
	return lo.EveryBy(runs, func(run GroupRun) bool {
		return lo.EveryBy(run.Results, func(r entity.OperationResult) bool { return r.Succeeded })
	})
}

// RunsErr aggregates every host failure across the runs into a single
// error, nil when everything passed.
func RunsErr(runs []GroupRun) error {
	var result *multierror.Error
	for _, run := range runs {
		for _, r := range run.Results {
			if r.Err != nil {
				result = multierror.Append(result, r.Err)
			}
		}
	}
	return result.ErrorOrNil()
}
