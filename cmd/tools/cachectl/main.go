// cachectl exercises the character cache API of a running server: parse a
// prompt, trigger a generation, list the manifest, or clear it.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	_ = godotenv.Load()

	mode := flag.String("mode", "", "operation: parse, generate, list or clear")
	server := flag.String("server", "http://localhost:8080", "base URL of the running server")
	prompt := flag.String("prompt", "", "prompt for parse and generate modes")
	timeout := flag.Duration("timeout", 3*time.Minute, "request timeout")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := &http.Client{}
	base := *server + "/api"

	var err error
	switch *mode {
	case "parse":
		err = postPrompt(ctx, client, base+"/character/parse", *prompt)
	case "generate":
		err = postPrompt(ctx, client, base+"/character/generate", *prompt)
	case "list":
		err = call(ctx, client, http.MethodGet, base+"/character/cache", nil)
	case "clear":
		err = call(ctx, client, http.MethodDelete, base+"/character/cache", nil)
	default:
		flag.Usage()
		log.Fatal("specify -mode=parse, -mode=generate, -mode=list or -mode=clear")
	}
	if err != nil {
		log.Fatalf("%s failed: %v", *mode, err)
	}
}

func postPrompt(ctx context.Context, client *http.Client, url, prompt string) error {
	if prompt == "" {
		return fmt.Errorf("a -prompt is required")
	}

	payload, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return err
	}
	return call(ctx, client, http.MethodPost, url, bytes.NewReader(payload))
}

func call(ctx context.Context, client *http.Client, method, url string, body io.Reader) error {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var pretty bytes.Buffer
	if json.Indent(&pretty, raw, "", "  ") == nil {
		raw = pretty.Bytes()
	}

	log.Printf("status %d", resp.StatusCode)
	fmt.Println(string(raw))
	if resp.StatusCode >= 400 {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	return nil
}
