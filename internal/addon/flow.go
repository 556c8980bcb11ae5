package addon

import (
	"context"
	"errors"
	"fmt"

	"github.com/teemow/inboxdraft/internal/cards"
)

// ErrInvalidTransition is returned for an action the current screen does
// not offer.
var ErrInvalidTransition = errors.New("invalid transition")

// NavKind is how a response changes the card stack.
type NavKind int

const (
	// NavNone leaves the stack alone; the response is a notification or a
	// host action.
	NavNone NavKind = iota
	NavPush
	NavUpdate
	NavPop
)

func (k NavKind) String() string {
	switch k {
	case NavPush:
		return "push"
	case NavUpdate:
		return "update"
	case NavPop:
		return "pop"
	default:
		return "none"
	}
}

// Op is the navigation an action performs and the screen it lands on.
type Op struct {
	Kind   NavKind
	Screen string
}

// Apply wraps card in the navigation of op. Pop ignores card.
func (op Op) Apply(card *cards.Card) *cards.RenderActions {
	switch op.Kind {
	case NavPush:
		return cards.Push(card)
	case NavUpdate:
		return cards.Update(card)
	case NavPop:
		return cards.Pop()
	default:
		return cards.Push(card)
	}
}

type transition struct {
	from   string
	action string
}

// Flow is the card navigation state machine.
type Flow struct {
	table map[transition]Op
	// origin is the screen assumed when a request carries no screen.
	origin map[string]string
}

// NewFlow returns the add-on's navigation table.
func NewFlow() *Flow {
	f := &Flow{table: map[transition]Op{}, origin: map[string]string{}}

	// compose mode
	f.add(cards.ScreenCompose, cards.ActionGenerateCompose, Op{NavPush, cards.ScreenDraft})
	f.add(cards.ScreenCompose, cards.ActionInsertTemplateText, Op{NavNone, cards.ScreenCompose})
	f.add(cards.ScreenDraft, cards.ActionRegenerateCompose, Op{NavUpdate, cards.ScreenDraft})
	f.add(cards.ScreenDraft, cards.ActionGoBackToCompose, Op{NavPop, cards.ScreenCompose})
	f.add(cards.ScreenDraft, cards.ActionInsertTemplateText, Op{NavNone, cards.ScreenDraft})

	// reply mode
	f.add(cards.ScreenReply, cards.ActionGenerateReply, Op{NavPush, cards.ScreenGeneratedReply})
	f.add(cards.ScreenReply, cards.ActionSummarizeEmail, Op{NavPush, cards.ScreenSummary})
	f.add(cards.ScreenReply, cards.ActionRefreshLatestReply, Op{NavUpdate, cards.ScreenReply})
	f.add(cards.ScreenReply, cards.ActionCreateReplyDraft, Op{NavNone, cards.ScreenReply})
	f.add(cards.ScreenReply, cards.ActionCreateCalendarEvent, Op{NavNone, cards.ScreenReply})
	f.add(cards.ScreenGeneratedReply, cards.ActionGenerateReply, Op{NavUpdate, cards.ScreenGeneratedReply})
	f.add(cards.ScreenGeneratedReply, cards.ActionCreateReplyDraft, Op{NavNone, cards.ScreenGeneratedReply})
	f.add(cards.ScreenSummary, cards.ActionGoBack, Op{NavPop, cards.ScreenReply})

	f.add(cards.ScreenError, cards.ActionGoBack, Op{NavPop, ""})

	return f
}

func (f *Flow) add(from, action string, op Op) {
	f.table[transition{from, action}] = op
	if _, ok := f.origin[action]; !ok {
		f.origin[action] = from
	}
}

// Next returns the navigation for action issued from screen from. An empty
// from means the first screen that offers the action.
func (f *Flow) Next(from, action string) (Op, error) {
	if from == "" {
		origin, ok := f.origin[action]
		if !ok {
			return Op{}, fmt.Errorf("%w: no screen offers %s", ErrInvalidTransition, action)
		}
		from = origin
	}
	op, ok := f.table[transition{from, action}]
	if !ok {
		return Op{}, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, action, from)
	}
	return op, nil
}

type opKey struct{}

func withOp(ctx context.Context, op Op) context.Context {
	return context.WithValue(ctx, opKey{}, op)
}

// opFromContext returns the navigation chosen for the current action.
// Triggers and direct handler calls get a push.
func opFromContext(ctx context.Context) Op {
	if op, ok := ctx.Value(opKey{}).(Op); ok {
		return op
	}
	return Op{Kind: NavPush}
}

// render applies the current action's navigation to card.
func render(ctx context.Context, card *cards.Card) *cards.RenderActions {
	return opFromContext(ctx).Apply(card)
}
