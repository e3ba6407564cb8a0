package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/snapkeeper/internal/client/models"
)

func usage(s string) error {
	return fmt.Errorf("usage: %s", s)
}

// recordID takes the id from args or prompts for it.
func (a *App) recordID(args []string, prompt string) (int64, error) {
	var raw string
	if len(args) > 0 {
		raw = args[0]
	} else {
		var err error
		if raw, err = getSimpleText(a.reader, prompt, a.out); err != nil {
			return 0, err
		}
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid record id %q", raw)
	}
	return id, nil
}

func (a *App) Import(ctx context.Context, args []string) error {
	var path string
	if len(args) > 0 {
		path = strings.Join(args, " ")
	} else {
		var err error
		if path, err = getSimpleText(a.reader, "Enter file path", a.out); err != nil {
			return err
		}
	}
	if path == "" {
		return usage("import <path>")
	}

	id, err := a.photoService.ImportFile(ctx, path)
	if err != nil {
		return err
	}
	a.printf("Imported #%d\n", id)
	return nil
}

func (a *App) List(ctx context.Context, _ []string) error {
	recs, err := a.photoService.List(ctx)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		a.printf("No photos yet\n")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tREMOTE\tSTATE\tFILTER")
	for _, r := range recs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", r.ID, remoteLabel(r), stateLabel(r), changedParams(r.Transform))
	}
	return tw.Flush()
}

func (a *App) Show(ctx context.Context, args []string) error {
	id, err := a.recordID(args, "Enter record id to show")
	if err != nil {
		return err
	}
	r, err := a.photoService.Show(ctx, id)
	if err != nil {
		return err
	}

	a.printf("Photo #%d\n", r.ID)
	a.printf("  remote:    %s\n", remoteLabel(r))
	a.printf("  state:     %s\n", stateLabel(r))
	if r.LastSyncVersion != models.NeverSynced {
		a.printf("  version:   %d\n", r.LastSyncVersion)
	}
	for _, p := range r.Transform.Params() {
		a.printf("  %-10s %s\n", p.Name+":", strconv.FormatFloat(p.Value, 'g', -1, 64))
	}
	return nil
}

// Edit applies name=value assignments, or a random filter with
// "edit <id> random [seed]".
func (a *App) Edit(ctx context.Context, args []string) error {
	id, err := a.recordID(args, "Enter record id to edit")
	if err != nil {
		return err
	}
	var rest []string
	if len(args) > 1 {
		rest = args[1:]
	}

	var r *models.Record
	if len(rest) > 0 && rest[0] == "random" {
		seed := uint64(a.now().UnixNano())
		if len(rest) > 1 {
			if seed, err = strconv.ParseUint(rest[1], 10, 64); err != nil {
				return usage("edit <id> random [seed]")
			}
		}
		r, err = a.photoService.Randomize(ctx, id, seed)
	} else {
		if len(rest) == 0 {
			if rest, err = GetAssignments(a.reader, a.out); err != nil {
				return err
			}
		}
		if len(rest) == 0 {
			return usage("edit <id> name=value ...")
		}
		r, err = a.photoService.Edit(ctx, id, rest)
	}
	if err != nil {
		return err
	}

	a.printf("Updated #%d: %s\n", r.ID, changedParams(r.Transform))
	return nil
}

func (a *App) Export(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return usage("export <id> <original|edited|thumbnail> <path>")
	}
	id, err := a.recordID(args, "")
	if err != nil {
		return err
	}
	path := strings.Join(args[2:], " ")
	if err := a.photoService.Export(ctx, id, args[1], path); err != nil {
		return err
	}
	a.printf("Wrote %s of #%d to %s\n", args[1], id, path)
	return nil
}

func (a *App) Delete(ctx context.Context, args []string) error {
	id, err := a.recordID(args, "Enter record id to delete")
	if err != nil {
		return err
	}
	if err := a.photoService.Delete(ctx, id); err != nil {
		return err
	}
	a.printf("Deleted #%d\n", id)
	return nil
}

func remoteLabel(r *models.Record) string {
	if r.GUID == "" {
		return "-"
	}
	return r.GUID
}

func stateLabel(r *models.Record) string {
	switch {
	case r.LocalImageChanges:
		return "new"
	case r.LocalFilterChanges:
		return "edited"
	case r.GUID == "":
		return "local"
	default:
		return "synced"
	}
}

// changedParams lists the parameters that differ from the identity filter.
func changedParams(t models.Transform) string {
	def := models.DefaultTransform().Params()
	var parts []string
	for i, p := range t.Params() {
		if p.Value != def[i].Value {
			parts = append(parts, p.Name+"="+strconv.FormatFloat(p.Value, 'g', 4, 64))
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, " ")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format(time.DateTime)
}
