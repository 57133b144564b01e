// Package main connects to the notification socket and prints every event it receives.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inkwell/internal/notifications"

	"github.com/gorilla/websocket"
)

func main() {
	host := flag.String("host", "localhost:8000", "API server host")
	email := flag.String("email", "admin@example.com", "Account email")
	password := flag.String("password", "", "Account password")
	secure := flag.Bool("tls", false, "Use https/wss")
	flag.Parse()

	httpScheme, wsScheme := "http", "ws"
	if *secure {
		httpScheme, wsScheme = "https", "wss"
	}
	base := fmt.Sprintf("%s://%s/api/v1", httpScheme, *host)
	client := &http.Client{Timeout: 5 * time.Second}

	token, err := login(client, base, *email, *password)
	if err != nil {
		log.Fatalf("❌ Login failed: %v", err)
	}
	ticket, err := getTicket(client, base, token)
	if err != nil {
		log.Fatalf("❌ Ticket issuance failed: %v", err)
	}

	u := url.URL{Scheme: wsScheme, Host: *host, Path: "/api/v1/ws", RawQuery: "ticket=" + url.QueryEscape(ticket)}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("❌ Dial failed: %v", err)
	}
	defer func() { _ = conn.Close() }()
	log.Printf("✅ Listening on %s as %s", u.Host, *email)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					log.Printf("read: %v", err)
				}
				return
			}
			var ev notifications.Event
			if err := json.Unmarshal(data, &ev); err != nil {
				log.Printf("undecodable frame: %s", data)
				continue
			}
			payload, _ := json.Marshal(ev.Payload)
			log.Printf("📨 %-18s %s", ev.Type, payload)
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	select {
	case <-done:
	case <-interrupt:
		log.Println("🛑 Interrupted by user")
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}
}

func login(client *http.Client, base, email, password string) (string, error) {
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	resp, err := client.Post(base+"/accounts/jwt/create", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login failed with status %d", resp.StatusCode)
	}
	var result struct {
		Access string `json:"access"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.Access, nil
}

func getTicket(client *http.Client, base, token string) (string, error) {
	req, _ := http.NewRequest(http.MethodPost, base+"/ws/ticket", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ticket issuance failed with status %d", resp.StatusCode)
	}
	var result struct {
		Ticket string `json:"ticket"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.Ticket, nil
}
