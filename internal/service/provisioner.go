package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cwrk-planet/tempvoice/internal/domain"
	"github.com/cwrk-planet/tempvoice/internal/registry"

	"github.com/samber/lo"
)

type ProvisionerConfig struct {
	// NameFormat accepts {category} and {member}.
	NameFormat string
}

// Provisioner grants every member one private channel per unique category.
type Provisioner struct {
	reg   registry.Registry
	gw    Gateway
	locks *KeyLock
	cfg   ProvisionerConfig
	log   *slog.Logger
}

func NewProvisioner(reg registry.Registry, gw Gateway, locks *KeyLock, cfg ProvisionerConfig, log *slog.Logger) *Provisioner {
	if cfg.NameFormat == "" {
		cfg.NameFormat = domain.DefaultUniqueNameFormat
	}
	if locks == nil {
		locks = NewKeyLock()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Provisioner{reg: reg, gw: gw, locks: locks, cfg: cfg, log: log.With("component", "provisioner")}
}

// BackfillReport counts the results of a backfill run.
type BackfillReport struct {
	Created  int      `json:"created"`
	Skipped  int      `json:"skipped"`
	Repaired int      `json:"repaired"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

// HandleMemberJoin provisions the member in every unique category of the guild.
func (p *Provisioner) HandleMemberJoin(ctx context.Context, guildID string, member domain.Member) error {
	if member.Bot {
		return nil
	}
	cats, err := p.reg.ListUniqueCategories(ctx, guildID)
	if err != nil {
		return fmt.Errorf("list unique categories: %w", err)
	}

	var errs []error
	for _, cat := range cats {
		out, err := p.Ensure(ctx, guildID, cat, member)
		if err != nil {
			p.log.ErrorContext(ctx, "provision failed",
				"guild_id", guildID, "category_id", cat.CategoryID, "member_id", member.ID,
				"outcome", out.String(), "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Ensure creates the member's channel in cat unless one is registered already,
// in which case it returns OutcomeDuplicate.
func (p *Provisioner) Ensure(ctx context.Context, guildID string, cat domain.UniqueCategory, member domain.Member) (domain.Outcome, error) {
	out, _, err := p.ensure(ctx, guildID, cat, member, false)
	return out, err
}

func (p *Provisioner) ensure(ctx context.Context, guildID string, cat domain.UniqueCategory, member domain.Member, repair bool) (domain.Outcome, bool, error) {
	unlock := p.locks.Lock("unique:" + guildID + ":" + cat.CategoryID + ":" + member.ID)
	defer unlock()

	repaired := false
	if repair {
		var err error
		if repaired, err = p.repair(ctx, guildID, cat.CategoryID, member.ID); err != nil {
			return domain.OutcomeUnexpected, false, err
		}
	}

	has, err := p.reg.MemberHasUniqueChannel(ctx, member.ID, cat.CategoryID, guildID)
	if err != nil {
		return domain.OutcomeUnexpected, repaired, fmt.Errorf("member has unique channel: %w", err)
	}
	if has {
		return domain.OutcomeDuplicate, repaired, nil
	}

	name := domain.FormatUniqueName(p.cfg.NameFormat, cat.Name, member.DisplayName)
	ch, err := p.gw.CreatePrivateChannel(ctx, guildID, domain.PrivateChannelSpec{
		Name:       name,
		ParentID:   cat.CategoryID,
		Kind:       cat.Kind,
		Overwrites: privateOverwrites(guildID, member.ID),
	})
	if err != nil {
		return domain.OutcomeOf(err), repaired, fmt.Errorf("create private channel in %s: %w", cat.CategoryID, err)
	}

	out, err := p.reg.RegisterUniqueChannel(ctx, member.ID, ch.ID, name, cat.CategoryID, guildID)
	if err != nil || out != domain.OutcomeSuccess {
		// lost a race with another provisioner, or the row could not be written
		if derr := p.gw.DeleteChannel(ctx, ch.ID); derr != nil && domain.OutcomeOf(derr) != domain.OutcomeNotFound {
			p.log.ErrorContext(ctx, "delete surplus private channel failed", "channel_id", ch.ID, "err", derr)
		}
	}
	if err != nil {
		return out, repaired, fmt.Errorf("register unique channel: %w", err)
	}
	if out == domain.OutcomeSuccess {
		p.log.InfoContext(ctx, "unique channel created",
			"guild_id", guildID, "category_id", cat.CategoryID, "member_id", member.ID, "channel_id", ch.ID)
	}
	return out, repaired, nil
}

// repair deactivates the member's row if its channel was deleted on the platform.
func (p *Provisioner) repair(ctx context.Context, guildID, categoryID, memberID string) (bool, error) {
	row, err := p.reg.GetUniqueChannel(ctx, memberID, categoryID, guildID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get unique channel: %w", err)
	}

	_, err = p.gw.Channel(ctx, row.ChannelID)
	switch domain.OutcomeOf(err) {
	case domain.OutcomeSuccess:
		return false, nil
	case domain.OutcomeNotFound:
	default:
		return false, fmt.Errorf("get channel %s: %w", row.ChannelID, err)
	}

	if _, err := p.reg.DeactivateUniqueChannel(ctx, memberID, categoryID, guildID); err != nil {
		return false, fmt.Errorf("deactivate unique channel: %w", err)
	}
	return true, nil
}

// Backfill provisions every non-bot member of the guild. An empty categoryID
// means all unique categories. With repair set, rows whose channel vanished are recreated.
func (p *Provisioner) Backfill(ctx context.Context, guildID, categoryID string, repair bool) (BackfillReport, error) {
	var rep BackfillReport

	cats, err := p.reg.ListUniqueCategories(ctx, guildID)
	if err != nil {
		return rep, fmt.Errorf("list unique categories: %w", err)
	}
	if categoryID != "" {
		cats = lo.Filter(cats, func(c domain.UniqueCategory, _ int) bool { return c.CategoryID == categoryID })
		if len(cats) == 0 {
			return rep, fmt.Errorf("unique category %s: %w", categoryID, domain.ErrNotFound)
		}
	}

	members, err := p.gw.GuildMembers(ctx, guildID)
	if err != nil {
		return rep, fmt.Errorf("list guild members: %w", err)
	}
	members = lo.Reject(members, func(m domain.Member, _ int) bool { return m.Bot })

	for _, cat := range cats {
		for _, m := range members {
			if err := ctx.Err(); err != nil {
				return rep, err
			}
			out, repaired, err := p.ensure(ctx, guildID, cat, m, repair)
			if repaired {
				rep.Repaired++
			}
			switch {
			case err != nil:
				rep.Failed++
				rep.Errors = append(rep.Errors, fmt.Sprintf("%s/%s: %v", cat.CategoryID, m.ID, err))
			case out == domain.OutcomeSuccess:
				rep.Created++
			default:
				rep.Skipped++
			}
		}
	}

	p.log.InfoContext(ctx, "backfill done",
		"guild_id", guildID, "created", rep.Created, "skipped", rep.Skipped,
		"repaired", rep.Repaired, "failed", rep.Failed)
	return rep, nil
}

// MarkCategory configures an existing category to hold per-member channels.
func (p *Provisioner) MarkCategory(ctx context.Context, guildID, categoryID, name string, kind domain.ChannelKind) (domain.Outcome, error) {
	if !domain.ValidSnowflake(guildID) || !domain.ValidSnowflake(categoryID) {
		return domain.OutcomeUnexpected, domain.ErrInvalidID
	}
	if kind == "" {
		kind = domain.KindText
	}
	if !kind.Valid() {
		return domain.OutcomeUnexpected, fmt.Errorf("%w %q", domain.ErrInvalidKind, kind)
	}
	cat, err := resolveCategory(ctx, p.gw, guildID, categoryID)
	if err != nil {
		return domain.OutcomeOf(err), err
	}
	if name == "" {
		name = cat.Name
	}
	out, err := p.reg.MarkUniqueCategory(ctx, categoryID, name, guildID, kind)
	if err != nil {
		return out, fmt.Errorf("mark unique category %s: %w", categoryID, err)
	}
	return out, nil
}

// UnmarkCategory stops provisioning in the category. Existing channels stay.
func (p *Provisioner) UnmarkCategory(ctx context.Context, guildID, categoryID string) (domain.Outcome, error) {
	out, err := p.reg.UnmarkUniqueCategory(ctx, categoryID, guildID)
	if err != nil {
		return out, fmt.Errorf("unmark unique category %s: %w", categoryID, err)
	}
	return out, nil
}

func (p *Provisioner) Categories(ctx context.Context, guildID string) ([]domain.UniqueCategory, error) {
	cats, err := p.reg.ListUniqueCategories(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("list unique categories: %w", err)
	}
	return cats, nil
}

// privateOverwrites hides the channel from @everyone (role id == guild id)
// and opens it to the member.
func privateOverwrites(guildID, memberID string) []domain.Overwrite {
	return []domain.Overwrite{
		{ID: guildID, Type: domain.OverwriteRole, Deny: domain.PermViewChannel},
		{
			ID:    memberID,
			Type:  domain.OverwriteMember,
			Allow: domain.PermViewChannel | domain.PermManageChannels | domain.PermSendMessages | domain.PermReadMessageHistory,
		},
	}
}
