package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/runoshun/decree/internal/domain"
)

// NormalizeMessage fills in a message's missing header fields
// deterministically, per spec.md §4.C's seven-step algorithm.
type NormalizeMessage struct {
	routines domain.RoutineStore
	router   domain.RouterAI
	minter   *domain.ChainMinter
	specs    domain.MessageStore
	cfg      *domain.Config
}

// NewNormalizeMessage wires a NormalizeMessage use case. specs is used only
// to read a spec message's own frontmatter (step 6); it may be the same
// domain.MessageStore the inbox uses, since Read accepts any path.
func NewNormalizeMessage(routines domain.RoutineStore, router domain.RouterAI, minter *domain.ChainMinter, specs domain.MessageStore, cfg *domain.Config) *NormalizeMessage {
	return &NormalizeMessage{routines: routines, router: router, minter: minter, specs: specs, cfg: cfg}
}

// NormalizeResult reports whether msg's header changed (so the caller
// knows whether a rewrite is needed) and any non-fatal warnings surfaced
// along the way.
type NormalizeResult struct {
	Changed  bool
	Warnings []string
}

// Execute mutates msg in place to fill in its missing chain, seq, id,
// type, and routine fields.
func (uc *NormalizeMessage) Execute(ctx context.Context, msg *domain.Message) (*NormalizeResult, error) {
	res := &NormalizeResult{}

	origChain, origSeq := msg.Chain, msg.Seq
	origType, origRoutine := msg.Type, msg.Routine

	if err := uc.resolveChainAndSeq(msg, res); err != nil {
		return nil, err
	}

	if msg.Type == "" {
		if msg.InputFile != "" && strings.HasSuffix(msg.InputFile, domain.SpecExt) {
			msg.Type = domain.MessageTypeSpec
		} else {
			msg.Type = domain.MessageTypeTask
		}
	}

	if err := uc.resolveRoutine(ctx, msg); err != nil {
		return nil, err
	}

	res.Changed = msg.Chain != origChain || msg.Seq != origSeq || msg.Type != origType || msg.Routine != origRoutine
	return res, nil
}

// resolveChainAndSeq implements steps 1-3: filename-derived chain/seq,
// overridden by the header's own chain/seq when present (with a warning
// on mismatch), minting a fresh chain only when neither source supplies one.
func (uc *NormalizeMessage) resolveChainAndSeq(msg *domain.Message, res *NormalizeResult) error {
	headerChain, headerSeq := msg.Chain, msg.Seq
	headerHasChain := headerChain != ""

	var filenameChain domain.ChainID
	var filenameSeq int
	filenameOK := false
	if msg.SourcePath != "" {
		base := filepath.Base(msg.SourcePath)
		stem := strings.TrimSuffix(base, filepath.Ext(base))
		if c, s, err := domain.ParseMessageID(stem); err == nil {
			filenameChain, filenameSeq, filenameOK = c, s, true
		}
	}

	chain, seq := domain.ChainID(""), 0
	switch {
	case headerHasChain && filenameOK:
		if headerChain != filenameChain || headerSeq != filenameSeq {
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"message %s: header chain/seq (%s-%d) overrides filename-derived (%s-%d)",
				msg.SourcePath, headerChain, headerSeq, filenameChain, filenameSeq))
		}
		chain, seq = headerChain, headerSeq
	case headerHasChain:
		chain, seq = headerChain, headerSeq
	case filenameOK:
		chain, seq = filenameChain, filenameSeq
	default:
		minted, err := uc.minter.Mint()
		if err != nil {
			return fmt.Errorf("mint chain id: %w", err)
		}
		chain, seq = minted, 0
	}

	msg.Chain = chain
	msg.Seq = seq
	return nil
}

// resolveRoutine implements step 6. The router is only ever consulted when
// the message itself arrived with no explicit routine selection; its
// answer, if a recognized routine, wins over the spec-frontmatter/default/
// fallback chain computed for the same case.
func (uc *NormalizeMessage) resolveRoutine(ctx context.Context, msg *domain.Message) error {
	if msg.Routine != "" {
		return nil
	}

	fallback := uc.specFrontmatterRoutine(msg)
	if fallback == "" {
		fallback = uc.cfg.DefaultRoutine
	}
	if fallback == "" {
		fallback = "develop"
	}

	routed := uc.tryRouter(ctx, msg)
	if routed != "" {
		msg.Routine = routed
		msg.RouterUsed = true
		return nil
	}

	msg.Routine = fallback
	return nil
}

func (uc *NormalizeMessage) specFrontmatterRoutine(msg *domain.Message) string {
	if msg.Type != domain.MessageTypeSpec || msg.InputFile == "" || uc.specs == nil {
		return ""
	}
	specMsg, err := uc.specs.Read(msg.InputFile)
	if err != nil {
		return ""
	}
	return specMsg.Routine
}

// tryRouter asks the router AI for a routine and returns it only if it
// names a routine this store can actually resolve; any failure,
// unavailability, or nonsense answer returns "".
func (uc *NormalizeMessage) tryRouter(ctx context.Context, msg *domain.Message) string {
	if uc.router == nil || uc.routines == nil {
		return ""
	}
	list, err := uc.routines.List()
	if err != nil || len(list) == 0 {
		return ""
	}
	candidates := make([]domain.RoutineDescription, 0, len(list))
	for _, r := range list {
		candidates = append(candidates, domain.RoutineDescription{Name: r.Name, Description: r.Description})
	}

	name, err := uc.router.Route(ctx, msg.Body, candidates)
	if err != nil || name == "" {
		return ""
	}
	if _, err := uc.routines.Find(name); err != nil {
		return ""
	}
	return name
}
