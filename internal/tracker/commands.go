package tracker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"nse_tracker/internal/models"

	"github.com/shopspring/decimal"
)

// commandTimeout bounds a single chat command, including all price lookups.
const commandTimeout = 2 * time.Minute

type CommandDoc struct {
	Name        string
	Description string
	Example     string
}

func defaultCommands() []CommandDoc {
	return []CommandDoc{
		{"/ping", "Connectivity check", "/ping"},
		{"/add", "Record a position", "/add <symbol> <long|short> <qty> <entry> <sl> <target>"},
		{"/positions", "Live table of positions with P/L, risk and target profit", "/positions"},
		{"/summary", "Portfolio totals only", "/summary"},
		{"/price", "Live price for one symbol", "/price <symbol>"},
		{"/symbols", "Search the NSE symbol list", "/symbols [query]"},
		{"/reset", "End this session and discard its positions", "/reset"},
		{"/help", "This list", "/help"},
	}
}

// SessionKey maps a chat to its session ID.
func SessionKey(chatID int64) string {
	return "tg:" + strconv.FormatInt(chatID, 10)
}

// HandleCommand processes an inbound chat command and returns the reply.
// ctx is the listener's context; cancelling it abandons pending price lookups.
func (t *Tracker) HandleCommand(ctx context.Context, chatID int64, cmd string) string {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return ""
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	// Strip a "@botname" suffix used in group chats.
	name := strings.ToLower(strings.SplitN(parts[0], "@", 2)[0])

	switch name {
	case "/ping":
		return "Pong 🏓"
	case "/start", "/help":
		return t.getHelp()
	case "/add":
		return t.handleAddCommand(chatID, parts)
	case "/positions", "/status":
		return t.handlePositionsCommand(ctx, chatID)
	case "/summary":
		return t.handleSummaryCommand(ctx, chatID)
	case "/price":
		if len(parts) < 2 {
			return "Usage: /price <symbol>"
		}
		return t.handlePriceCommand(ctx, parts[1])
	case "/symbols":
		return t.handleSymbolsCommand(ctx, strings.Join(parts[1:], " "))
	case "/reset":
		if t.sessions.End(SessionKey(chatID)) {
			return "🧹 Session ended. All positions discarded."
		}
		return "ℹ️ No active session."
	default:
		return "Unknown command. Try /add, /positions, /summary, /price or /help."
	}
}

func (t *Tracker) getHelp() string {
	var sb strings.Builder
	sb.WriteString("🤖 *NSE POSITION TRACKER*\n\n")
	for _, cmd := range t.commands {
		sb.WriteString(fmt.Sprintf("🔹 *%s*\n%s\n`%s`\n\n", cmd.Name, cmd.Description, cmd.Example))
	}
	return sb.String()
}

// ParseAddArgs turns "/add SYMBOL SIDE QTY ENTRY SL TARGET" into a Position.
func ParseAddArgs(parts []string) (models.Position, error) {
	if len(parts) != 7 {
		return models.Position{}, errors.New("expected 6 arguments")
	}

	side, err := models.ParseSide(parts[2])
	if err != nil {
		return models.Position{}, err
	}

	qty, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return models.Position{}, fmt.Errorf("invalid quantity %q", parts[3])
	}

	prices := make([]decimal.Decimal, 3)
	for i, raw := range parts[4:7] {
		prices[i], err = decimal.NewFromString(raw)
		if err != nil {
			return models.Position{}, fmt.Errorf("invalid price %q", raw)
		}
	}

	return models.Position{
		Symbol:      parts[1],
		Side:        side,
		Quantity:    qty,
		EntryPrice:  prices[0],
		StopLoss:    prices[1],
		TargetPrice: prices[2],
	}, nil
}

func (t *Tracker) handleAddCommand(chatID int64, parts []string) string {
	p, err := ParseAddArgs(parts)
	if err != nil {
		return fmt.Sprintf("⚠️ Error: %v\nUsage: /add <symbol> <long|short> <qty> <entry> <sl> <target>", err)
	}

	s := t.sessions.Get(SessionKey(chatID))
	added, err := t.AddPosition(s, p)
	if err != nil {
		return fmt.Sprintf("⚠️ Error: %v", err)
	}

	return fmt.Sprintf("✅ Added %s *%s* x%d @ %s\nSL: %s | Target: %s\nPositions in session: %d",
		added.Side, added.Symbol, added.Quantity, added.EntryPrice.StringFixed(2),
		added.StopLoss.StringFixed(2), added.TargetPrice.StringFixed(2), s.Store.Len())
}

func (t *Tracker) handlePositionsCommand(ctx context.Context, chatID int64) string {
	s := t.sessions.Get(SessionKey(chatID))
	return t.formatter.Positions(t.Refresh(ctx, s))
}

func (t *Tracker) handleSummaryCommand(ctx context.Context, chatID int64) string {
	s := t.sessions.Get(SessionKey(chatID))
	if s.Store.Len() == 0 {
		return "ℹ️ No positions added yet."
	}
	return t.formatter.Summary(t.Refresh(ctx, s).Summary)
}

func (t *Tracker) handlePriceCommand(ctx context.Context, symbol string) string {
	q := t.quoter.Quote(ctx, symbol)
	if !q.Available {
		return fmt.Sprintf("⚠️ Could not fetch price for %s.", q.Symbol)
	}
	return fmt.Sprintf("💵 *%s*: %s", q.Symbol, t.formatter.Money(q.Price))
}

func (t *Tracker) handleSymbolsCommand(ctx context.Context, query string) string {
	results := t.symbols.Search(ctx, query, 10)
	if len(results) == 0 {
		if len(t.symbols.Symbols(ctx)) == 0 {
			return "⚠️ Symbol list unavailable. Enter symbols manually with /add."
		}
		return fmt.Sprintf("🔍 No symbols match '%s'.", query)
	}

	var sb strings.Builder
	if query == "" {
		sb.WriteString("🔍 *Symbols*\n")
	} else {
		sb.WriteString(fmt.Sprintf("🔍 *Symbols matching '%s'*\n", query))
	}
	for _, s := range results {
		sb.WriteString(fmt.Sprintf("- %s\n", s))
	}
	return sb.String()
}
