package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"segmenthub/internal/segment"
)

const (
	defaultBaseURL   = "http://localhost:8080"
	defaultMemoryURL = "http://localhost:8090"
)

type tokenData struct {
	Token string `json:"token"`
}

type authResponse struct {
	Token string `json:"token"`
}

func main() {
	global := flag.NewFlagSet("segmenthub", flag.ExitOnError)
	baseURL := global.String("api", defaultBaseURL, "API base URL")
	memoryURL := global.String("memory", defaultMemoryURL, "memory service base URL")
	tokenPath := global.String("token", defaultTokenPath(), "token file path")
	if err := global.Parse(os.Args[1:]); err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	args := global.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()
	cmd := args[0]
	sub := ""
	if len(args) > 1 {
		sub = args[1]
	}

	client := &http.Client{Timeout: 15 * time.Second}

	switch cmd {
	case "auth":
		handleAuth(ctx, client, *baseURL, *tokenPath, sub, args[2:])
	case "pair":
		handlePair(ctx, client, *baseURL, *tokenPath, sub, args[2:])
	case "codec":
		handleCodec(sub, args[2:])
	case "memory":
		handleMemory(ctx, client, *memoryURL, sub, args[2:])
	case "events":
		handleEvents(*baseURL, sub, args[2:])
	default:
		printUsage()
		os.Exit(1)
	}
}

func handleAuth(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	switch sub {
	case "login":
		fs := flag.NewFlagSet("auth login", flag.ExitOnError)
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)

		if *email == "" || *password == "" {
			log.Fatal("email and password are required")
		}

		payload := map[string]string{"email": *email, "password": *password}
		var resp authResponse
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/auth/login", "", payload, &resp); err != nil {
			log.Fatalf("login failed: %v", err)
		}
		if err := saveToken(tokenPath, resp.Token); err != nil {
			log.Fatalf("save token: %v", err)
		}
		fmt.Println("✅ logged in")
	case "register":
		fs := flag.NewFlagSet("auth register", flag.ExitOnError)
		username := fs.String("username", "", "username")
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		langSource := fs.String("lang-source", "", "default source language")
		langTarget := fs.String("lang-target", "", "default target language")
		_ = fs.Parse(args)

		if *username == "" || *email == "" || *password == "" {
			log.Fatal("username, email, and password are required")
		}

		payload := map[string]string{
			"username":    *username,
			"email":       *email,
			"password":    *password,
			"lang_source": *langSource,
			"lang_target": *langTarget,
		}
		var resp authResponse
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/auth/register", "", payload, &resp); err != nil {
			log.Fatalf("register failed: %v", err)
		}
		if err := saveToken(tokenPath, resp.Token); err != nil {
			log.Fatalf("save token: %v", err)
		}
		fmt.Println("✅ registered and logged in")
	case "logout":
		if err := clearToken(tokenPath); err != nil {
			log.Fatalf("logout failed: %v", err)
		}
		fmt.Println("✅ logged out")
	default:
		log.Fatal("usage: segmenthub auth <login|register|logout>")
	}
}

func handlePair(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	token := mustToken(tokenPath)
	switch sub {
	case "register":
		fs := flag.NewFlagSet("pair register", flag.ExitOnError)
		id := fs.String("id", "", "pair id (generated when empty)")
		sourceFile := fs.String("source", "", "path to source document")
		targetFile := fs.String("target", "", "path to target document (optional)")
		langSource := fs.String("lang-source", "", "source language")
		langTarget := fs.String("lang-target", "", "target language")
		mask := fs.Bool("mask", false, "mask raw HTML before registering")
		_ = fs.Parse(args)
		if *sourceFile == "" {
			log.Fatal("source file is required")
		}

		sourceHTML, err := os.ReadFile(*sourceFile)
		if err != nil {
			log.Fatalf("read source: %v", err)
		}
		targetHTML := []byte{}
		if *targetFile != "" {
			targetHTML, err = os.ReadFile(*targetFile)
			if err != nil {
				log.Fatalf("read target: %v", err)
			}
		}

		payload := map[string]any{
			"pair_id":     *id,
			"source_html": string(sourceHTML),
			"target_html": string(targetHTML),
			"lang_source": *langSource,
			"lang_target": *langTarget,
			"mask":        *mask,
		}
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/pairs", token, payload, &resp); err != nil {
			log.Fatalf("register failed: %v", err)
		}
		printJSON(resp)
	case "show":
		fs := flag.NewFlagSet("pair show", flag.ExitOnError)
		id := fs.String("id", "", "pair id")
		_ = fs.Parse(args)
		if *id == "" {
			log.Fatal("pair id is required")
		}

		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/pairs/"+url.PathEscape(*id), token, nil, &resp); err != nil {
			log.Fatalf("show failed: %v", err)
		}
		printJSON(resp)
	case "activate":
		fs := flag.NewFlagSet("pair activate", flag.ExitOnError)
		id := fs.String("id", "", "pair id")
		segmentID := fs.String("segment", "", "segment id")
		side := fs.String("side", "target", "editor side")
		_ = fs.Parse(args)
		if *id == "" || *segmentID == "" {
			log.Fatal("pair id and segment id are required")
		}

		payload := map[string]any{"segment_id": *segmentID, "side": *side}
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/pairs/"+url.PathEscape(*id)+"/active", token, payload, &resp); err != nil {
			log.Fatalf("activate failed: %v", err)
		}
		printJSON(resp)
	case "validate":
		fs := flag.NewFlagSet("pair validate", flag.ExitOnError)
		id := fs.String("id", "", "pair id")
		_ = fs.Parse(args)
		if *id == "" {
			log.Fatal("pair id is required")
		}

		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/pairs/"+url.PathEscape(*id)+"/validation", token, nil, &resp); err != nil {
			log.Fatalf("validate failed: %v", err)
		}
		printJSON(resp)
	case "complete":
		fs := flag.NewFlagSet("pair complete", flag.ExitOnError)
		id := fs.String("id", "", "pair id")
		segmentID := fs.String("segment", "", "segment id")
		undo := fs.Bool("undo", false, "mark as not completed")
		_ = fs.Parse(args)
		if *id == "" || *segmentID == "" {
			log.Fatal("pair id and segment id are required")
		}

		payload := map[string]any{"completed": !*undo}
		endpoint := baseURL + "/pairs/" + url.PathEscape(*id) + "/segments/" + url.PathEscape(*segmentID) + "/complete"
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodPost, endpoint, token, payload, &resp); err != nil {
			log.Fatalf("complete failed: %v", err)
		}
		printJSON(resp)
	case "audit":
		fs := flag.NewFlagSet("pair audit", flag.ExitOnError)
		id := fs.String("id", "", "pair id")
		_ = fs.Parse(args)
		if *id == "" {
			log.Fatal("pair id is required")
		}

		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/pairs/"+url.PathEscape(*id)+"/audit", token, nil, &resp); err != nil {
			log.Fatalf("audit failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: segmenthub pair <register|show|activate|validate|complete|audit>")
	}
}

// handleCodec runs the segment codec locally, no server needed. Input
// comes from -in or stdin, output goes to stdout.
func handleCodec(sub string, args []string) {
	fs := flag.NewFlagSet("codec "+sub, flag.ExitOnError)
	in := fs.String("in", "", "input file (stdin when empty)")
	_ = fs.Parse(args)

	text, err := readInput(*in)
	if err != nil {
		log.Fatalf("read input: %v", err)
	}

	switch sub {
	case "mask":
		out, err := segment.MaskDocument(text)
		if err != nil {
			log.Fatalf("mask failed: %v", err)
		}
		fmt.Println(out)
	case "unmask":
		out, err := segment.UnmaskDocument(text)
		if err != nil {
			log.Fatalf("unmask failed: %v", err)
		}
		fmt.Println(out)
	default:
		log.Fatal("usage: segmenthub codec <mask|unmask>")
	}
}

func handleMemory(ctx context.Context, client *http.Client, memoryURL, sub string, args []string) {
	switch sub {
	case "add":
		fs := flag.NewFlagSet("memory add", flag.ExitOnError)
		langSource := fs.String("lang-source", "", "source language")
		langTarget := fs.String("lang-target", "", "target language")
		source := fs.String("source", "", "source segment HTML")
		target := fs.String("target", "", "target segment HTML")
		quality := fs.Int("quality", 0, "quality 0-100")
		_ = fs.Parse(args)
		if *source == "" || *target == "" || *langSource == "" || *langTarget == "" {
			log.Fatal("lang-source, lang-target, source, and target are required")
		}

		payload := map[string]any{
			"lang_source": *langSource,
			"lang_target": *langTarget,
			"source_html": *source,
			"target_html": *target,
			"quality":     *quality,
		}
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodPost, memoryURL+"/memory/units", "", payload, &resp); err != nil {
			log.Fatalf("add failed: %v", err)
		}
		printJSON(resp)
	case "lookup":
		fs := flag.NewFlagSet("memory lookup", flag.ExitOnError)
		langSource := fs.String("lang-source", "", "source language")
		langTarget := fs.String("lang-target", "", "target language")
		text := fs.String("text", "", "stripped segment text")
		_ = fs.Parse(args)
		if *text == "" || *langSource == "" || *langTarget == "" {
			log.Fatal("lang-source, lang-target, and text are required")
		}

		u, err := url.Parse(memoryURL + "/memory/translations")
		if err != nil {
			log.Fatalf("invalid memory url: %v", err)
		}
		qv := u.Query()
		qv.Set("segmentStrippedText", *text)
		qv.Set("lang_source", *langSource)
		qv.Set("lang_target", *langTarget)
		u.RawQuery = qv.Encode()

		var resp []map[string]any
		if err := doJSON(ctx, client, http.MethodGet, u.String(), "", nil, &resp); err != nil {
			log.Fatalf("lookup failed: %v", err)
		}
		if len(resp) == 0 {
			fmt.Println("no matches")
			return
		}
		printJSON(resp)
	default:
		log.Fatal("usage: segmenthub memory <add|lookup>")
	}
}

func handleEvents(baseURL, sub string, args []string) {
	switch sub {
	case "listen":
		fs := flag.NewFlagSet("events listen", flag.ExitOnError)
		addr := fs.String("addr", "127.0.0.1:7070", "TCP event feed address")
		pretty := fs.Bool("pretty", true, "pretty print JSON events")
		_ = fs.Parse(args)
		for {
			if err := runFeedTCP(*addr, *pretty); err != nil {
				log.Printf("[events] disconnected: %v", err)
			}
			time.Sleep(1 * time.Second)
		}
	case "subscribe":
		fs := flag.NewFlagSet("events subscribe", flag.ExitOnError)
		pairID := fs.String("pair", "", "pair id to subscribe to")
		wsURL := fs.String("ws", "", "WebSocket URL (defaults to /ws on API host)")
		_ = fs.Parse(args)
		if *pairID == "" {
			log.Fatal("pair id is required")
		}

		endpoint := *wsURL
		if endpoint == "" {
			var err error
			endpoint, err = websocketURL(baseURL, "/ws")
			if err != nil {
				log.Fatalf("ws url: %v", err)
			}
		}
		endpoint += "?pair=" + url.QueryEscape(*pairID)
		if err := runWebSocket(endpoint); err != nil {
			log.Fatalf("subscribe failed: %v", err)
		}
	default:
		log.Fatal("usage: segmenthub events <listen|subscribe>")
	}
}

func runFeedTCP(addr string, pretty bool) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	log.Printf("[events] connected to %s", addr)
	reader := bufio.NewScanner(conn)
	for reader.Scan() {
		line := reader.Bytes()
		if !pretty {
			fmt.Println(string(line))
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(line, &obj); err != nil {
			fmt.Println(string(line))
			continue
		}
		b, _ := json.MarshalIndent(obj, "", "  ")
		fmt.Println(string(b))
	}
	if err := reader.Err(); err != nil {
		return err
	}
	return os.ErrClosed
}

func runWebSocket(wsURL string) error {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Printf("[events] connected to %s", wsURL)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		fmt.Println(string(msg))
	}
}

func readInput(path string) (string, error) {
	if path == "" {
		b, err := io.ReadAll(os.Stdin)
		return string(b), err
	}
	b, err := os.ReadFile(path)
	return string(b), err
}

func doJSON(ctx context.Context, client *http.Client, method, endpoint, token string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = strings.NewReader(string(b))
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s failed: %s", method, endpoint, strings.TrimSpace(string(data)))
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return err
	}
	return nil
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("json: %v", err)
	}
	fmt.Println(string(b))
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./.segmenthub-token.json"
	}
	return filepath.Join(home, ".segmenthub", "token.json")
}

func saveToken(path, token string) error {
	if token == "" {
		return errors.New("empty token")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(tokenData{Token: token}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func readToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var td tokenData
	if err := json.Unmarshal(data, &td); err != nil {
		return "", err
	}
	return strings.TrimSpace(td.Token), nil
}

func mustToken(path string) string {
	token, err := readToken(path)
	if err != nil {
		log.Fatalf("token not found, please login: %v", err)
	}
	if token == "" {
		log.Fatal("token empty, please login")
	}
	return token
}

func clearToken(path string) error {
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

func websocketURL(baseURL, path string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	return (&url.URL{
		Scheme: scheme,
		Host:   u.Host,
		Path:   path,
	}).String(), nil
}

func printUsage() {
	fmt.Println("segmenthub <command> [subcommand] [flags]")
	fmt.Println("commands:")
	fmt.Println("  auth login|register|logout")
	fmt.Println("  pair register|show|activate|validate|complete|audit")
	fmt.Println("  codec mask|unmask")
	fmt.Println("  memory add|lookup")
	fmt.Println("  events listen|subscribe")
}
