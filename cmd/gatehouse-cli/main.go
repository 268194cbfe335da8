// Command gatehouse-cli drives the portal's admin API from the terminal.
// It logs in, keeps the bearer token for the invocation, and runs one
// management operation per call.
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

	"github.com/sirupsen/logrus"
)

var log = logrus.New()

func main() {
	serverURL := flag.String("server", envOr("GATEHOUSE_SERVER", "http://localhost:8080"), "portal base URL")
	email := flag.String("email", envOr("GATEHOUSE_ADMIN_EMAIL", ""), "admin email to log in as")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	if *email == "" {
		log.Fatal("admin email required (-email or GATEHOUSE_ADMIN_EMAIL)")
	}

	client := newClient(*serverURL, *email)
	if err := client.login(); err != nil {
		log.WithError(err).Fatal("login failed")
	}
	defer client.logout()

	if err := client.run(args[0], args[1:]); err != nil {
		log.WithError(err).Fatal("command failed")
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: gatehouse-cli [flags] <command> [args]

commands:
  permissions                    list the permission records
  grant <email>                  add a non-admin permission
  revoke <email>                 remove a permission
  promote <email>                grant the admin flag
  demote <email>                 revoke the admin flag
  requests                       list pending access requests
  approve <email>                approve a pending request
  deny <email>                   deny a pending request
  content                        list library items
  content-add <file.json>        add an item from a JSON file
  content-rm <id>                remove an item
  audit [limit]                  list recent audit events`)
	flag.PrintDefaults()
}

type client struct {
	base  string
	email string
	token string
	http  *http.Client
}

func newClient(base, email string) *client {
	return &client{
		base:  base,
		email: email,
		http:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *client) login() error {
	body, _ := json.Marshal(map[string]string{"email": c.email})

	resp, err := c.http.Post(c.base+"/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login returned %s", resp.Status)
	}

	var out struct {
		Token    string `json:"token"`
		Snapshot struct {
			Admin bool `json:"admin"`
		} `json:"snapshot"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return err
	}
	if !out.Snapshot.Admin {
		return fmt.Errorf("%s is not an admin", c.email)
	}

	c.token = out.Token
	log.WithField("email", c.email).Debug("logged in")
	return nil
}

func (c *client) logout() {
	if c.token == "" {
		return
	}
	if _, err := c.do("POST", "/auth/logout", nil); err != nil {
		log.WithError(err).Debug("logout failed")
	}
}

func (c *client) run(command string, args []string) error {
	switch command {
	case "permissions":
		return c.printJSON("GET", "/admin/permissions", nil)
	case "grant":
		return c.withEmail(args, func(email string) error {
			body, _ := json.Marshal(map[string]string{"email": email})
			_, err := c.do("POST", "/admin/permissions", body)
			return err
		})
	case "revoke":
		return c.withEmail(args, func(email string) error {
			_, err := c.do("DELETE", "/admin/permissions/"+email, nil)
			return err
		})
	case "promote":
		return c.withEmail(args, func(email string) error {
			_, err := c.do("POST", "/admin/permissions/"+email+"/grant-admin", nil)
			return err
		})
	case "demote":
		return c.withEmail(args, func(email string) error {
			_, err := c.do("POST", "/admin/permissions/"+email+"/revoke-admin", nil)
			return err
		})
	case "requests":
		return c.printJSON("GET", "/admin/requests", nil)
	case "approve":
		return c.withEmail(args, func(email string) error {
			_, err := c.do("POST", "/admin/requests/"+email+"/approve", nil)
			return err
		})
	case "deny":
		return c.withEmail(args, func(email string) error {
			_, err := c.do("POST", "/admin/requests/"+email+"/deny", nil)
			return err
		})
	case "content":
		return c.printJSON("GET", "/content", nil)
	case "content-add":
		if len(args) != 1 {
			return fmt.Errorf("content-add takes one JSON file")
		}
		body, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		return c.printJSON("POST", "/content", body)
	case "content-rm":
		if len(args) != 1 {
			return fmt.Errorf("content-rm takes one ID")
		}
		_, err := c.do("DELETE", "/content/"+args[0], nil)
		return err
	case "audit":
		path := "/admin/audit"
		if len(args) == 1 {
			path += "?limit=" + args[0]
		}
		return c.printJSON("GET", path, nil)
	default:
		usage()
		return fmt.Errorf("unknown command: %s", command)
	}
}

func (c *client) withEmail(args []string, fn func(string) error) error {
	if len(args) != 1 {
		return fmt.Errorf("expected exactly one email argument")
	}
	if err := fn(args[0]); err != nil {
		return err
	}
	log.WithField("email", args[0]).Info("done")
	return nil
}

func (c *client) printJSON(method, path string, body []byte) error {
	data, err := c.do(method, path, body)
	if err != nil {
		return err
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		fmt.Println(string(data))
		return nil
	}
	fmt.Println(pretty.String())
	return nil
}

func (c *client) do(method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequest(method, c.base+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log.WithFields(logrus.Fields{"method": method, "path": path}).Debug("request")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%s %s returned %s: %s", method, path, resp.Status, bytes.TrimSpace(data))
	}

	return data, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
