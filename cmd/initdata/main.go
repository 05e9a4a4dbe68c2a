// Command initdata fills a running server with fake notes for one or more
// principals. Tokens are minted locally with the server's signing secret, so
// it only works against instances sharing JWT_SECRET (or DEV_MODE).
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/ldelvillar/snap-notes-sub000/internal/config"
	"github.com/ldelvillar/snap-notes-sub000/internal/services/auth"
	"github.com/ldelvillar/snap-notes-sub000/internal/services/notes"

	"github.com/brianvoe/gofakeit/v6"
)

var (
	baseURL  = flag.String("url", env("API_BASE_URL", "http://localhost:8080"), "Server base URL")
	email    = flag.String("email", env("EMAIL", "demo@example.com"), "Principal e-mail")
	users    = flag.Int("users", 1, "Extra fake principals to seed besides -email")
	nNotes   = flag.Int("n", 50, "How many notes to create per principal")
	pinEvery = flag.Int("pin-every", 10, "Pin every Nth note (0 disables pinning)")
	seed     = flag.Int64("seed", 0, "Fake data seed (0 picks one from the clock)")

	client = &http.Client{Timeout: 10 * time.Second}
)

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	flag.Parse()
	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	faker := gofakeit.New(*seed)

	cfg, err := config.Load()
	if err != nil {
		fatal(fmt.Errorf("config: %w", err))
	}
	secret := cfg.SigningSecret()

	principals := []string{*email}
	for range *users - 1 {
		principals = append(principals, faker.Email())
	}

	for _, who := range principals {
		token, err := auth.IssueToken(secret, who, time.Hour)
		if err != nil {
			fatal(err)
		}

		fmt.Printf("Seeding %s (notes=%d) on %s\n", who, *nNotes, *baseURL)
		if err := createNotes(faker, token, *nNotes); err != nil {
			fatal(err)
		}
	}

	fmt.Println("done")
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "FATAL:", err)
	os.Exit(1)
}

func createNotes(faker *gofakeit.Faker, token string, total int) error {
	for i := 1; i <= total; i++ {
		req := notes.CreateNoteRequest{
			Title: faker.Sentence(3),
			Text:  faker.Paragraph(1, 3, 40, "\n"),
		}
		if i%7 == 0 {
			req.Title = "" // server falls back to "Untitled"
		}

		var created notes.NoteResponse
		if err := call(http.MethodPost, "/api/v1/notes", token, req, http.StatusCreated, &created); err != nil {
			return fmt.Errorf("create note %d: %w", i, err)
		}

		if *pinEvery > 0 && i%*pinEvery == 0 {
			if err := call(http.MethodPost, "/api/v1/notes/"+created.Note.ID+"/pin", token, nil, http.StatusOK, nil); err != nil {
				return fmt.Errorf("pin note %d: %w", i, err)
			}
		}

		if i%25 == 0 || i == total {
			fmt.Printf("  %d/%d\n", i, total)
		}
	}
	return nil
}

func call(method, path, token string, body any, want int, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, *baseURL+path, r)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != want {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, data)
	}
	if out != nil {
		return json.Unmarshal(data, out)
	}
	return nil
}
