// Package conversation turns chat messages and button callbacks into payment
// operations and renders the replies shown to the user.
package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"payment-bot/internal/app/payments"
	"payment-bot/internal/domain/session"
)

// CheckPrefix prefixes the callback data of the "check payment" button.
const CheckPrefix = "check_"

// Reply is what the transport sends back. When PaymentLink is set the
// transport also renders it as a QR code; CheckAction is the callback data
// for the check button.
type Reply struct {
	Text         string           `json:"text"`
	OrderID      string           `json:"order_id,omitempty"`
	PaymentLink  string           `json:"payment_link,omitempty"`
	CheckAction  string           `json:"check_action,omitempty"`
	ClearActions bool             `json:"clear_actions,omitempty"`
	Outcome      payments.Outcome `json:"outcome,omitempty"`
}

type Dispatcher struct {
	engine *payments.Engine
	log    logrus.FieldLogger
}

func NewDispatcher(engine *payments.Engine, log logrus.FieldLogger) *Dispatcher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Dispatcher{engine: engine, log: log}
}

// HandleMessage processes a text message from userID.
func (d *Dispatcher) HandleMessage(ctx context.Context, userID, text string) Reply {
	text = strings.TrimSpace(text)

	if cmd, ok := parseCommand(text); ok {
		switch cmd {
		case "start":
			return Reply{Text: d.welcomeText()}
		case "help":
			return Reply{Text: d.helpText()}
		case "pay":
			return d.pay(ctx, userID)
		case "history":
			return d.history(ctx, userID)
		}
	}

	state, err := d.engine.Sessions().Get(ctx, userID)
	if err != nil {
		d.log.WithError(err).WithField("user_id", userID).Warn("session lookup failed")
		return Reply{Text: "❌ Something went wrong. Please try again."}
	}

	if state != session.StateAwaitingAmount {
		return Reply{Text: "Use /pay to start or /help for help."}
	}
	if strings.HasPrefix(text, "/") || text == "" {
		return Reply{Text: "Please enter amount:"}
	}
	return d.amount(ctx, userID, text)
}

// HandleCallback processes a button press.
func (d *Dispatcher) HandleCallback(ctx context.Context, userID, data string) Reply {
	orderID, ok := strings.CutPrefix(strings.TrimSpace(data), CheckPrefix)
	if !ok || orderID == "" {
		return Reply{Text: "Unknown action."}
	}
	res := d.engine.Reconcile(ctx, payments.ReconcileRequest{
		OrderID: orderID,
		UserID:  userID,
		Source:  payments.SourceCheck,
	})
	return d.CheckReply(res)
}

func (d *Dispatcher) pay(ctx context.Context, userID string) Reply {
	if err := d.engine.BeginPayment(ctx, userID); err != nil {
		d.log.WithError(err).WithField("user_id", userID).Error("failed to start payment")
		return Reply{Text: "❌ Something went wrong. Please try again."}
	}
	p := d.engine.Policy()
	return Reply{Text: fmt.Sprintf("💰 Please enter amount in %s:\n(%s - %s)",
		d.engine.Currency().Code, d.limit(p.Min), d.limit(p.Max))}
}

func (d *Dispatcher) amount(ctx context.Context, userID, text string) Reply {
	res := d.engine.CreatePayment(ctx, userID, text)
	reply := Reply{Outcome: res.Outcome}

	switch res.Outcome {
	case payments.OutcomeCreated:
		p := res.Payment
		reply.Text = fmt.Sprintf("✅ Payment request created!\n\nAmount: %s\nOrder ID: %s\n\nScan QR code or use link below:",
			d.money(p.Amount), p.OrderID)
		reply.OrderID = p.OrderID
		reply.PaymentLink = p.PaymentLink
		reply.CheckAction = CheckPrefix + p.OrderID
	case payments.OutcomeOutOfRange:
		p := d.engine.Policy()
		reply.Text = fmt.Sprintf("❌ Invalid amount! Please enter between %s and %s:", d.limit(p.Min), d.limit(p.Max))
	case payments.OutcomeInvalidAmount:
		reply.Text = "❌ Please enter a valid number:"
		if res.AmountErr != nil && res.AmountErr.Reason != "" {
			reply.Text = fmt.Sprintf("❌ Invalid amount! %s only allows %d decimal places:",
				d.engine.Currency().Code, d.engine.Currency().Exponent)
		}
	case payments.OutcomeGatewayUnavailable:
		reply.Text = "❌ Payment service is unavailable right now. Please send the amount again in a moment."
	default:
		reply.Text = "❌ Something went wrong. Please try again."
	}
	return reply
}

// CheckReply renders the result of a payment check.
func (d *Dispatcher) CheckReply(res payments.CheckResult) Reply {
	reply := Reply{Outcome: res.Outcome, OrderID: res.OrderID}

	switch res.Outcome {
	case payments.OutcomeConfirmed:
		reply.Text = fmt.Sprintf("✅ Payment successful!\nAmount: %s\nThank you for your payment!", d.money(res.SettledAmount))
		reply.ClearActions = true
	case payments.OutcomeAlreadyConfirmed:
		reply.Text = "✅ Payment already confirmed! Thank you!"
		reply.ClearActions = true
	case payments.OutcomeNotYetReceived:
		reply.Text = "❌ Payment not received yet.\nPlease complete the payment and try again."
		reply.CheckAction = CheckPrefix + res.OrderID
	case payments.OutcomeOrderClosed:
		reply.Text = fmt.Sprintf("❌ This payment is %s and can no longer be completed. Use /pay to start a new one.", res.GatewayStatus)
		reply.ClearActions = true
	case payments.OutcomeUnknownOrder:
		reply.Text = "❌ Payment not found."
		reply.ClearActions = true
	case payments.OutcomeDiscrepancy:
		reply.Text = "⚠️ The amount received does not match this payment. It has been sent for manual review."
		reply.ClearActions = true
	default:
		reply.Text = "❌ Error checking payment. Please try again later."
		reply.CheckAction = CheckPrefix + res.OrderID
	}
	return reply
}

func (d *Dispatcher) history(ctx context.Context, userID string) Reply {
	list, err := d.engine.History(ctx, userID, 0)
	if err != nil {
		return Reply{Text: "❌ Could not load your payment history. Please try again later."}
	}
	if len(list) == 0 {
		return Reply{Text: "📭 No payment history found."}
	}

	var b strings.Builder
	b.WriteString("📊 Your Payment History:\n\n")
	for _, p := range list {
		marker := "⏳"
		if p.IsSettled() {
			marker = "✅"
		}
		fmt.Fprintf(&b, "%s %s - %s\n", marker, d.money(p.Amount), p.CreatedAt.Format("02-Jan-2006"))
	}
	return Reply{Text: b.String()}
}

func (d *Dispatcher) welcomeText() string {
	return "🚀 Welcome to Payment Bot!\n\n" +
		"Available Commands:\n" +
		"/pay - Make a payment\n" +
		"/history - View payment history\n" +
		"/help - Show help"
}

func (d *Dispatcher) helpText() string {
	p := d.engine.Policy()
	return fmt.Sprintf("ℹ️ How it works:\n\n"+
		"1. Send /pay and enter an amount between %s and %s.\n"+
		"2. Pay using the QR code or link.\n"+
		"3. Press \"Check Payment\" to confirm.\n\n"+
		"/history shows your last %d payments.",
		d.limit(p.Min), d.limit(p.Max), d.engine.HistoryLimit())
}

func (d *Dispatcher) money(amount decimal.Decimal) string {
	return d.withSymbol(d.engine.Currency().Format(amount))
}

// limit renders a configured bound as written, without padding decimals.
func (d *Dispatcher) limit(amount decimal.Decimal) string {
	return d.withSymbol(amount.String())
}

func (d *Dispatcher) withSymbol(s string) string {
	code := d.engine.Currency().Code
	if code == "INR" {
		return "₹" + s
	}
	return s + " " + code
}

// parseCommand accepts "/cmd" and "/cmd@botname", case-insensitively.
func parseCommand(text string) (string, bool) {
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	cmd := strings.Fields(text[1:])
	if len(cmd) == 0 {
		return "", false
	}
	name, _, _ := strings.Cut(cmd[0], "@")
	return strings.ToLower(name), true
}
