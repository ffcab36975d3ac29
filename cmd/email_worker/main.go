package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/bapconnect/connect-api/config"
	"github.com/bapconnect/connect-api/pkg/mailer"
	mailtpl "github.com/bapconnect/connect-api/pkg/mailer/templates"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	if !cfg.MailSendEnabled {
		log.Println("MAIL_SEND_ENABLED=false; email worker disabled (no real emails will be sent)")
		return
	}
	if cfg.RabbitMQURL == "" || cfg.RabbitMQEmailQueue == "" {
		log.Fatal("RabbitMQ not configured")
	}
	if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.MailgunSender == "" {
		log.Fatal("Mailgun not configured")
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("amqp dial: %v", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("amqp channel: %v", err)
	}
	defer func() { _ = ch.Close() }()

	// Prefetch for fair dispatch
	if err := ch.Qos(16, 0, false); err != nil {
		log.Fatalf("qos: %v", err)
	}

	if _, err := ch.QueueDeclare(cfg.RabbitMQEmailQueue, true, false, false, false, nil); err != nil {
		log.Fatalf("queue declare: %v", err)
	}

	msgs, err := ch.Consume(cfg.RabbitMQEmailQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	mg := mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender)
	ctx := context.Background()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		for msg := range msgs {
			var job mailer.EmailJob
			if err := json.Unmarshal(msg.Body, &job); err != nil {
				log.Printf("bad message: %v", err)
				_ = msg.Nack(false, false)
				continue
			}
			if job.To == "" {
				log.Printf("message without recipient dropped")
				_ = msg.Nack(false, false)
				continue
			}

			subject := job.Subject
			text := job.Text
			html := job.HTML

			if job.Template != "" {
				if job.Template == mailer.TemplateVerifyEmail {
					job.Data = verifyEmailData(cfg, job.To, job.Data)
				}
				s, t, h, rerr := mailtpl.Render(job.Template, job.Data)
				if rerr != nil {
					log.Printf("render %s failed: %v", job.Template, rerr)
					_ = msg.Nack(false, false)
					continue
				}
				subject, text, html = s, t, h
			}

			c, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := mg.Send(c, job.To, subject, text, html)
			cancel()
			if err != nil {
				log.Printf("send failed: %v", err)
				// One redelivery, then drop: a poisoned job must not spin forever.
				_ = msg.Nack(false, !msg.Redelivered)
				continue
			}
			_ = msg.Ack(false)
		}
		close(done)
	}()

	log.Printf("email worker listening on queue=%s", cfg.RabbitMQEmailQueue)
	<-stop
	log.Printf("shutting down...")
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}

// verifyEmailData rebuilds the canonical template data from the queued
// payload, adding the company fields the publisher does not carry.
// ExpiresAt travels as RFC3339; the builder derives the rendered form.
func verifyEmailData(cfg *config.Config, to string, data map[string]any) map[string]any {
	name, _ := data["Name"].(string)
	verifyURL, _ := data["VerifyURL"].(string)

	var opts []mailtpl.Option
	if u, ok := data["Username"].(string); ok && u != "" {
		opts = append(opts, mailtpl.WithUsername(u))
	}
	if raw, ok := data["ExpiresAt"].(string); ok {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			opts = append(opts, mailtpl.WithExpiresAt(t))
		}
	}
	return mailtpl.NewVerifyEmailData(cfg, name, to, verifyURL, opts...)
}
