// Command initdata seeds a server with random notes through the REST API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"postit/internal/remote"
	"postit/internal/services/postit"

	"github.com/brianvoe/gofakeit/v6"
)

var (
	baseURL = flag.String("url", env("API_BASE_URL", "http://localhost:8080"), "Server base URL")
	token   = flag.String("token", env("API_TOKEN", ""), "Bearer token, when the server requires one")
	nPages  = flag.Int("pages", envInt("PAGES", 5), "How many pages to seed")
	nNotes  = flag.Int("n", envInt("COUNT", 10), "How many notes per page")
)

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var i int
		if _, err := fmt.Sscan(v, &i); err == nil && i > 0 {
			return i
		}
	}
	return def
}

func main() {
	flag.Parse()
	faker := gofakeit.New(time.Now().UnixNano())

	fmt.Printf("Seeding %d pages x %d notes on %s\n", *nPages, *nNotes, *baseURL)

	for range *nPages {
		page := faker.URL()
		if err := seedPage(page, *nNotes, faker); err != nil {
			fmt.Fprintln(os.Stderr, "FATAL:", err)
			os.Exit(1)
		}
		fmt.Printf("• %s\n", page)
	}

	fmt.Println("✔ done")
}

func seedPage(page string, total int, faker *gofakeit.Faker) error {
	a := remote.New(remote.Options{
		Endpoint: remote.PageEndpoint(*baseURL, page),
		Token:    *token,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := a.Load(ctx); err != nil {
		return fmt.Errorf("load %s: %w", page, err)
	}
	for range total {
		a.Create(randomNote(faker))
	}
	return a.Close()
}

func randomNote(faker *gofakeit.Faker) postit.Note {
	return postit.Note{
		ID:        postit.NewID(),
		Color:     postit.Colors[faker.Number(0, len(postit.Colors)-1)],
		X:         faker.Number(0, 1200),
		Y:         faker.Number(0, 800),
		Rotate:    faker.Number(postit.MinRotate, postit.MaxRotate),
		Content:   "<b>" + faker.HipsterWord() + "</b> " + faker.Sentence(faker.Number(3, 12)),
		Minimized: faker.Number(0, 9) == 0,
	}
}
