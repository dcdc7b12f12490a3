package cli

import (
	"context"
	"fmt"

	"github.com/cwrk-planet/tempvoice/internal/app"
	"github.com/cwrk-planet/tempvoice/internal/discord"
	"github.com/cwrk-planet/tempvoice/internal/domain"

	"github.com/spf13/cobra"
)

// withServices opens the registry and a REST-only session, runs fn and closes both.
// Voice occupancy needs the live gateway cache, so commands that depend on it
// go through the running server instead (see reconcile).
func (rt *runtime) withServices(ctx context.Context, fn func(*app.Services) error) error {
	st, err := app.OpenStore(ctx, rt.cfg, rt.log)
	if err != nil {
		return err
	}
	defer st.Close()

	session, err := discord.NewSession(rt.cfg.Discord.Token)
	if err != nil {
		return err
	}
	gw := discord.NewGateway(session, rt.cfg.Discord.Timeout())
	return fn(app.NewServices(st, gw, rt.cfg, rt.log))
}

type outcomeResult struct {
	CategoryID string `json:"category_id"`
	Outcome    string `json:"outcome"`
}

func newGeneratorCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "generator",
		Aliases: []string{"gen"},
		Short:   "Manage generator categories",
	}

	var name string
	add := &cobra.Command{
		Use:   "add <guild-id> <category-id>",
		Short: "Mark a category as a generator",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			return rt.withServices(c.Context(), func(svc *app.Services) error {
				out, err := svc.Generators.Mark(c.Context(), args[0], args[1], name)
				if err != nil {
					return err
				}
				return printJSON(c.OutOrStdout(), outcomeResult{CategoryID: args[1], Outcome: out.String()})
			})
		},
	}
	add.Flags().StringVar(&name, "name", "", "display name (default: the category's name)")

	remove := &cobra.Command{
		Use:   "remove <guild-id> <category-id>",
		Short: "Delete the category's rooms and unmark it",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			return rt.withServices(c.Context(), func(svc *app.Services) error {
				rep, err := svc.Generators.Unmark(c.Context(), args[0], args[1])
				if perr := printJSON(c.OutOrStdout(), rep); perr != nil {
					return perr
				}
				if err == nil && rep.Partial() {
					err = fmt.Errorf("%d room(s) could not be removed", len(rep.Failed))
				}
				return err
			})
		},
	}

	rooms := &cobra.Command{
		Use:   "rooms <guild-id> <category-id>",
		Short: "List active rooms of a generator",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			return rt.withServices(c.Context(), func(svc *app.Services) error {
				ids, err := svc.Generators.Rooms(c.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				if ids == nil {
					ids = []string{}
				}
				return printJSON(c.OutOrStdout(), ids)
			})
		},
	}

	list := &cobra.Command{
		Use:   "list <guild-id>",
		Short: "List generator categories",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return rt.withServices(c.Context(), func(svc *app.Services) error {
				gens, err := svc.Generators.List(c.Context(), args[0])
				if err != nil {
					return err
				}
				if gens == nil {
					gens = []domain.GeneratorCategory{}
				}
				return printJSON(c.OutOrStdout(), gens)
			})
		},
	}

	cmd.AddCommand(add, remove, rooms, list)
	return cmd
}

func newUniqueCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unique",
		Short: "Manage categories with one private channel per member",
	}

	var name, kind string
	add := &cobra.Command{
		Use:   "add <guild-id> <category-id>",
		Short: "Mark a category for per-member channels",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			return rt.withServices(c.Context(), func(svc *app.Services) error {
				out, err := svc.Provisioner.MarkCategory(c.Context(), args[0], args[1], name, domain.ChannelKind(kind))
				if err != nil {
					return err
				}
				return printJSON(c.OutOrStdout(), outcomeResult{CategoryID: args[1], Outcome: out.String()})
			})
		},
	}
	add.Flags().StringVar(&name, "name", "", "display name (default: the category's name)")
	add.Flags().StringVar(&kind, "kind", string(domain.KindText), "channel kind: text or forum")

	remove := &cobra.Command{
		Use:   "remove <guild-id> <category-id>",
		Short: "Stop provisioning in a category; existing channels stay",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			return rt.withServices(c.Context(), func(svc *app.Services) error {
				out, err := svc.Provisioner.UnmarkCategory(c.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				return printJSON(c.OutOrStdout(), outcomeResult{CategoryID: args[1], Outcome: out.String()})
			})
		},
	}

	list := &cobra.Command{
		Use:   "list <guild-id>",
		Short: "List unique categories",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return rt.withServices(c.Context(), func(svc *app.Services) error {
				cats, err := svc.Provisioner.Categories(c.Context(), args[0])
				if err != nil {
					return err
				}
				if cats == nil {
					cats = []domain.UniqueCategory{}
				}
				return printJSON(c.OutOrStdout(), cats)
			})
		},
	}

	cmd.AddCommand(add, remove, list)
	return cmd
}

func newBackfillCmd(rt *runtime) *cobra.Command {
	var repair bool
	cmd := &cobra.Command{
		Use:   "backfill <guild-id> [category-id]",
		Short: "Create missing per-member channels for existing members",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(c *cobra.Command, args []string) error {
			categoryID := ""
			if len(args) == 2 {
				categoryID = args[1]
			}
			return rt.withServices(c.Context(), func(svc *app.Services) error {
				rep, err := svc.Provisioner.Backfill(c.Context(), args[0], categoryID, repair)
				if err != nil {
					return err
				}
				return printJSON(c.OutOrStdout(), rep)
			})
		},
	}
	cmd.Flags().BoolVar(&repair, "repair", false, "recreate channels whose recorded channel was deleted")
	return cmd
}
