package safety

import (
	"context"
	"fmt"
	"time"

	"github.com/IMINABO1/Vault/server/models"
	"github.com/IMINABO1/Vault/server/work"
)

const (
	EmailJobHandler = "notifyContactByEmail"
	SMSJobHandler   = "notifyContactBySms"

	sendTimeout = 30 * time.Second
)

type EmailSender interface {
	Send(ctx context.Context, toName, toEmail, subject, body string) error
}

type SMSSender interface {
	SendMessage(to, msg string) error
}

// Notifier delivers beacon alerts. A nil sender disables that channel.
type Notifier struct {
	email EmailSender
	sms   SMSSender
}

func NewNotifier(email EmailSender, sms SMSSender) *Notifier {
	return &Notifier{email: email, sms: sms}
}

// RegisterHandlers binds the delivery jobs to the worker pool.
func (n *Notifier) RegisterHandlers(adapter *work.WorkerPoolAdapter) error {
	if err := adapter.Register(EmailJobHandler, n.SendEmail); err != nil {
		return err
	}

	return adapter.Register(SMSJobHandler, n.SendSMS)
}

func (n *Notifier) SendEmail(args map[string]interface{}) error {
	alert := alertFromArgs(args)
	if n.email == nil {
		logg.Infof("e-mail delivery disabled, beacon %v not mailed to contact %v", alert.BeaconID, alert.ContactID)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	return n.email.Send(ctx, alert.ContactName, alert.Address, alert.subject(), alert.body())
}

func (n *Notifier) SendSMS(args map[string]interface{}) error {
	alert := alertFromArgs(args)
	if n.sms == nil {
		logg.Infof("sms delivery disabled, beacon %v not texted to contact %v", alert.BeaconID, alert.ContactID)
		return nil
	}

	return n.sms.SendMessage(alert.Address, alert.shortBody())
}

type alert struct {
	BeaconID    string
	OwnerName   string
	ContactID   string
	ContactName string
	Address     string
	Latitude    float64
	Longitude   float64
	TriggeredAt time.Time
}

func notificationJobs(owner models.Owner, beacon models.Beacon, contact models.Contact) []work.JobParams {
	args := func(address string) map[string]interface{} {
		return map[string]interface{}{
			"beacon_id":    beacon.ID,
			"owner_name":   owner.FullName,
			"contact_id":   contact.ID,
			"contact_name": contact.Name,
			"address":      address,
			"latitude":     beacon.Latitude,
			"longitude":    beacon.Longitude,
			"triggered_at": beacon.TriggeredAt,
		}
	}

	jobs := []work.JobParams{{
		Name:    fmt.Sprintf("beacon-%s-sms-%s", beacon.ID, contact.ID),
		Handler: SMSJobHandler,
		Args:    args(contact.Phone),
	}}

	if contact.Email != nil && *contact.Email != "" {
		jobs = append(jobs, work.JobParams{
			Name:    fmt.Sprintf("beacon-%s-email-%s", beacon.ID, contact.ID),
			Handler: EmailJobHandler,
			Args:    args(*contact.Email),
		})
	}

	return jobs
}

func alertFromArgs(args map[string]interface{}) alert {
	a := alert{}
	a.BeaconID, _ = args["beacon_id"].(string)
	a.OwnerName, _ = args["owner_name"].(string)
	a.ContactID, _ = args["contact_id"].(string)
	a.ContactName, _ = args["contact_name"].(string)
	a.Address, _ = args["address"].(string)
	a.Latitude, _ = args["latitude"].(float64)
	a.Longitude, _ = args["longitude"].(float64)
	a.TriggeredAt, _ = args["triggered_at"].(time.Time)

	if a.OwnerName == "" {
		a.OwnerName = "Someone who listed you as an emergency contact"
	}

	return a
}

func (a alert) mapsURL() string {
	return fmt.Sprintf("https://maps.google.com/?q=%.6f,%.6f", a.Latitude, a.Longitude)
}

func (a alert) subject() string {
	return fmt.Sprintf("SOS: %s triggered a safety beacon", a.OwnerName)
}

func (a alert) body() string {
	return fmt.Sprintf(`Hi %s,

%s triggered an emergency safety beacon at %s.

Last known location: %.6f, %.6f
%s

You are receiving this because you are listed as one of their emergency contacts.`,
		a.ContactName, a.OwnerName, a.TriggeredAt.Format(time.RFC1123), a.Latitude, a.Longitude, a.mapsURL())
}

func (a alert) shortBody() string {
	return fmt.Sprintf("SOS from %s. Last known location: %s", a.OwnerName, a.mapsURL())
}
