package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "auth":
		err = handleAuth(args)
	case "server":
		err = handleServer(args)
	case "section":
		err = handleSection(args)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}
}

func handleAuth(args []string) error {
	if len(args) < 1 {
		fmt.Println("Usage: serverhub auth <register|login|logout|who>")
		return nil
	}

	switch args[0] {
	case "register":
		return registerUser(args[1:])
	case "login":
		return loginUser(args[1:])
	case "logout":
		return logoutUser()
	case "who":
		return whoAmI()
	default:
		return fmt.Errorf("unknown auth command: %s", args[0])
	}
}

func handleServer(args []string) error {
	if len(args) < 1 {
		fmt.Println("Usage: serverhub server <list|create|publish|unpublish|delete>")
		return nil
	}

	switch args[0] {
	case "list":
		return listServers()
	case "create":
		return createServer(args[1:])
	case "publish":
		return setPublished(args[1:], true)
	case "unpublish":
		return setPublished(args[1:], false)
	case "delete":
		return deleteServer(args[1:])
	default:
		return fmt.Errorf("unknown server command: %s", args[0])
	}
}

func handleSection(args []string) error {
	if len(args) < 1 {
		fmt.Println("Usage: serverhub section <list|add|delete> <server-id>")
		return nil
	}

	switch args[0] {
	case "list":
		return listSections(args[1:])
	case "add":
		return addSection(args[1:])
	case "delete":
		return deleteSection(args[1:])
	default:
		return fmt.Errorf("unknown section command: %s", args[0])
	}
}

// Auth commands

func credentials(name string, args []string) (string, string, error) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	fs.Parse(args)

	if *email == "" || *password == "" {
		fs.PrintDefaults()
		return "", "", errors.New("email and password are required")
	}
	return *email, *password, nil
}

func registerUser(args []string) error {
	email, password, err := credentials("register", args)
	if err != nil {
		return err
	}
	payload := map[string]string{"email": email, "password": password}
	if err := call(http.MethodPost, "/auth/register", payload, nil); err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	fmt.Printf("✓ User registered: %s\n", email)
	return login(email, password)
}

func loginUser(args []string) error {
	email, password, err := credentials("login", args)
	if err != nil {
		return err
	}
	return login(email, password)
}

func login(email, password string) error {
	var result struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expiresAt"`
	}
	payload := map[string]string{"email": email, "password": password}
	if err := call(http.MethodPost, "/auth/login", payload, &result); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	if err := saveToken(result.Token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	fmt.Printf("✓ Logged in as: %s (until %s)\n", email, result.ExpiresAt.Local().Format(time.RFC822))
	return nil
}

func logoutUser() error {
	if loadToken() != "" {
		// the local token is dropped even if the server is unreachable
		if err := call(http.MethodPost, "/auth/logout", nil, nil); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
	}
	if err := os.Remove(tokenFile()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	fmt.Println("✓ Logged out")
	return nil
}

func whoAmI() error {
	if loadToken() == "" {
		fmt.Println("Not logged in")
		return nil
	}
	var result struct {
		User struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
	}
	if err := call(http.MethodGet, "/auth/me", nil, &result); err != nil {
		return err
	}
	fmt.Printf("✓ Logged in as %s (%s)\n", result.User.Email, result.User.ID)
	return nil
}

// Server commands

type server struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Subdomain string    `json:"subdomain"`
	Address   string    `json:"address"`
	Port      int       `json:"port"`
	Published bool      `json:"published"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func listServers() error {
	var result struct {
		Servers []server `json:"servers"`
	}
	if err := call(http.MethodGet, "/servers", nil, &result); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSUBDOMAIN\tPUBLISHED\tUPDATED")
	for _, s := range result.Servers {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", s.ID, s.Name, s.Subdomain, s.Published, s.UpdatedAt.Local().Format(time.DateTime))
	}
	return w.Flush()
}

func createServer(args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	name := fs.String("name", "", "display name")
	subdomain := fs.String("subdomain", "", "page subdomain (3-30 of a-z, 0-9, -)")
	description := fs.String("description", "", "short description")
	address := fs.String("address", "", "game server address")
	port := fs.Int("port", 0, "game server port")
	fs.Parse(args)

	if *name == "" || *subdomain == "" {
		fs.PrintDefaults()
		return errors.New("name and subdomain are required")
	}

	payload := map[string]any{
		"name":        *name,
		"subdomain":   *subdomain,
		"description": *description,
		"address":     *address,
		"port":        *port,
	}
	var created server
	if err := call(http.MethodPost, "/servers", payload, &created); err != nil {
		return err
	}
	fmt.Printf("✓ Server created: %s (%s)\n", created.Subdomain, created.ID)
	return nil
}

func setPublished(args []string, published bool) error {
	if len(args) < 1 {
		return errors.New("server id is required")
	}
	action := "unpublish"
	if published {
		action = "publish"
	}
	var s server
	if err := call(http.MethodPost, "/servers/"+args[0]+"/"+action, nil, &s); err != nil {
		return err
	}
	fmt.Printf("✓ %s published=%t\n", s.Subdomain, s.Published)
	return nil
}

func deleteServer(args []string) error {
	if len(args) < 1 {
		return errors.New("server id is required")
	}
	if err := call(http.MethodDelete, "/servers/"+args[0], nil, nil); err != nil {
		return err
	}
	fmt.Println("✓ Server deleted")
	return nil
}

// Section commands

func listSections(args []string) error {
	if len(args) < 1 {
		return errors.New("server id is required")
	}
	var result struct {
		Sections []struct {
			ID      string `json:"id"`
			Type    string `json:"type"`
			Title   string `json:"title"`
			Visible bool   `json:"visible"`
			Order   int    `json:"order"`
		} `json:"sections"`
	}
	if err := call(http.MethodGet, "/servers/"+args[0]+"/sections", nil, &result); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ORDER\tID\tTYPE\tTITLE\tVISIBLE")
	for _, s := range result.Sections {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\n", s.Order, s.ID, s.Type, s.Title, s.Visible)
	}
	return w.Flush()
}

func addSection(args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	serverID := fs.String("server", "", "server id")
	sectionType := fs.String("type", "hero", "section type (hero, stats, features, gallery)")
	title := fs.String("title", "", "section title")
	subtitle := fs.String("subtitle", "", "section subtitle")
	settings := fs.String("settings", "", "settings as a JSON object")
	hidden := fs.Bool("hidden", false, "create the section hidden")
	fs.Parse(args)

	if *serverID == "" {
		fs.PrintDefaults()
		return errors.New("-server is required")
	}

	payload := map[string]any{
		"type":     *sectionType,
		"title":    *title,
		"subtitle": *subtitle,
		"visible":  !*hidden,
	}
	if *settings != "" {
		var parsed map[string]any
		if err := json.Unmarshal([]byte(*settings), &parsed); err != nil {
			return fmt.Errorf("invalid -settings: %w", err)
		}
		payload["settings"] = parsed
	}

	var created struct {
		ID    string `json:"id"`
		Order int    `json:"order"`
	}
	if err := call(http.MethodPost, "/servers/"+*serverID+"/sections", payload, &created); err != nil {
		return err
	}
	fmt.Printf("✓ Section added: %s (order %d)\n", created.ID, created.Order)
	return nil
}

func deleteSection(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: serverhub section delete <server-id> <section-id>")
	}
	if err := call(http.MethodDelete, "/servers/"+args[0]+"/sections/"+args[1], nil, nil); err != nil {
		return err
	}
	fmt.Println("✓ Section deleted")
	return nil
}

// Helper functions

// call sends a JSON request to the API and decodes a successful response into out.
func call(method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, getAPIURL()+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	addAuthHeader(req)

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (HTTP %d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func getAPIURL() string {
	if url := os.Getenv("SERVERHUB_API"); url != "" {
		return strings.TrimSuffix(url, "/")
	}
	return "http://localhost:8080/api"
}

func tokenDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".serverhub")
}

func tokenFile() string {
	return filepath.Join(tokenDir(), "token")
}

func saveToken(token string) error {
	if err := os.MkdirAll(tokenDir(), 0o700); err != nil {
		return err
	}
	return os.WriteFile(tokenFile(), []byte(token), 0o600)
}

func loadToken() string {
	data, _ := os.ReadFile(tokenFile())
	return strings.TrimSpace(string(data))
}

func addAuthHeader(req *http.Request) {
	if token := loadToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func printUsage() {
	fmt.Print(`serverhub CLI

Usage:
  serverhub <command> [options]

Commands:
  auth     Account (register, login, logout, who)
  server   Server pages (list, create, publish, unpublish, delete)
  section  Page sections (list, add, delete)
  help     Show this help message

Environment Variables:
  SERVERHUB_API    API endpoint (default: http://localhost:8080/api)

Examples:
  serverhub auth register -email owner@example.com -password hunter22
  serverhub server create -name "Blockville" -subdomain blockville -address play.blockville.net -port 25565
  serverhub section add -server <id> -type stats -settings '{"items":[{"label":"Players","value":"120"}]}'
  serverhub server publish <id>
`)
}
