package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bher20/cryptofolio/internal/metrics"
	"github.com/bher20/cryptofolio/internal/portfolio"
	"github.com/bher20/cryptofolio/internal/prices"
)

// Dispatcher maps inbound chat commands to portfolio service calls and
// formats the reply text. It never returns an error: the worst outcome of
// any command is a user-visible message.
type Dispatcher struct {
	svc *portfolio.Service
}

func NewDispatcher(svc *portfolio.Service) *Dispatcher {
	return &Dispatcher{svc: svc}
}

const helpText = "Commands:\n" +
	"`register` - create your portfolio\n" +
	"`unregister` - delete your portfolio\n" +
	"`add <currency> <amount> <buy price>` - add or replace a holding\n" +
	"`remove <currency>` - remove a holding\n" +
	"`summary` - value your portfolio in USD\n" +
	"`price <currency>` - current USD price of a currency"

// Handle runs one command for the given chat user and returns the reply.
func (d *Dispatcher) Handle(ctx context.Context, userID int64, text string) string {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return helpText
	}
	verb := strings.ToLower(fields[0])
	args := fields[1:]
	metrics.CommandsTotal.WithLabelValues(verb).Inc()

	// Everything except register/help requires a registered user.
	switch verb {
	case "register", "help":
	default:
		if !d.svc.IsRegistered(userID) {
			return "You are not registered. Use `register` first."
		}
	}

	switch verb {
	case "help":
		return helpText
	case "register":
		return d.register(userID)
	case "unregister":
		d.svc.Unregister(userID)
		return "Your portfolio has been deleted."
	case "add":
		return d.add(ctx, userID, args)
	case "remove":
		return d.remove(userID, args)
	case "summary":
		return d.summary(ctx, userID)
	case "price":
		return d.price(ctx, args)
	default:
		return fmt.Sprintf("Unknown command `%s`.\n%s", verb, helpText)
	}
}

func (d *Dispatcher) register(userID int64) string {
	if err := d.svc.Register(userID); err != nil {
		if errors.Is(err, portfolio.ErrAlreadyRegistered) {
			return "You are already registered."
		}
		return "An error occurred. Please try again later."
	}
	return "You are now registered. Add holdings with `add <currency> <amount> <buy price>`."
}

func (d *Dispatcher) add(ctx context.Context, userID int64, args []string) string {
	if len(args) != 3 {
		return "Usage: `add <currency> <amount> <buy price>`"
	}
	currency := args[0]
	amount, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Sprintf("Invalid amount %q.", args[1])
	}
	buyPrice, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return fmt.Sprintf("Invalid buy price %q.", args[2])
	}

	if err := d.svc.AddHolding(ctx, userID, currency, amount, buyPrice); err != nil {
		return fmt.Sprintf("Could not find price data for **%s**. Please check the symbol.", strings.ToUpper(currency))
	}
	return fmt.Sprintf("Added %.4f **%s** to your portfolio.", amount, strings.ToUpper(currency))
}

func (d *Dispatcher) remove(userID int64, args []string) string {
	if len(args) != 1 {
		return "Usage: `remove <currency>`"
	}
	d.svc.RemoveHolding(userID, args[0])
	return fmt.Sprintf("Removed **%s** from your portfolio.", strings.ToUpper(args[0]))
}

func (d *Dispatcher) summary(ctx context.Context, userID int64) string {
	sum := d.svc.Summarize(ctx, userID)
	if sum.Empty {
		return "Your portfolio is empty."
	}

	var b strings.Builder
	for _, item := range sum.Items {
		fmt.Fprintf(&b,
			"**%s**:\n1 Amount: %.4f\n2 Current Coin Value: $%.4f\n3 Current Value: $%.2f\n\n",
			strings.ToUpper(item.Currency), item.Amount, item.UnitPrice, item.Value)
	}
	fmt.Fprintf(&b, "**Total Portfolio Value: $%.2f**", sum.Total)
	return b.String()
}

func (d *Dispatcher) price(ctx context.Context, args []string) string {
	if len(args) != 1 {
		return "Usage: `price <currency>`"
	}
	symbol := args[0]
	price, err := d.svc.PriceOf(ctx, symbol)
	if err != nil {
		if errors.Is(err, prices.ErrNotFound) {
			return fmt.Sprintf("Could not find price data for **%s**. Please check the symbol.", strings.ToUpper(symbol))
		}
		return "An error occurred while fetching the price. Please try again later."
	}
	return fmt.Sprintf("The current price of **%s** is **$%.2f** USD.", strings.ToUpper(symbol), price)
}
