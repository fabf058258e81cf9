package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/cucumber/godog"

	gormstore "github.com/techmatters/terraso-go/pkg/server/store/gorm"
)

// StepsContext holds state shared between step definitions
type StepsContext struct {
	tc           *TestContext
	response     *http.Response
	responseBody []byte
	authToken    string
	remembered   map[string]string
}

// NewStepsContext creates a new steps context
func NewStepsContext(tc *TestContext) *StepsContext {
	return &StepsContext{tc: tc, remembered: make(map[string]string)}
}

// RegisterSteps registers all step definitions
func (s *StepsContext) RegisterSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a Terraso server is running$`, s.aTerrasoServerIsRunning)
	sc.Step(`^a user "([^"]*)" exists$`, s.aUserExists)
	sc.Step(`^I am signed in as "([^"]*)"$`, s.iAmSignedInAs)
	sc.Step(`^I am not signed in$`, s.iAmNotSignedIn)

	sc.Step(`^I send a (GET|DELETE|POST) request to "([^"]*)"$`, s.iSendARequestTo)
	sc.Step(`^I send a (POST|PUT) request to "([^"]*)" with:$`, s.iSendARequestWith)

	sc.Step(`^the response status should be (\d+)$`, s.theResponseStatusShouldBe)
	sc.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, s.theResponseFieldShouldBe)
	sc.Step(`^the response field "([^"]*)" should have (\d+) items?$`, s.theResponseFieldShouldHaveItems)
	sc.Step(`^I remember the response field "([^"]*)" as "([^"]*)"$`, s.iRememberTheResponseField)
}

func (s *StepsContext) aTerrasoServerIsRunning() error {
	return nil
}

func (s *StepsContext) aUserExists(email string) error {
	_, _, err := gormstore.NewUsersStore(s.tc.DB).GetOrCreateByEmail(context.Background(), email)
	return err
}

func (s *StepsContext) iAmSignedInAs(email string) error {
	user, err := gormstore.NewUsersStore(s.tc.DB).FindUserByEmail(context.Background(), email)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("no user %s", email)
	}
	access, _, err := s.tc.Tokens.LoginPair(user, false)
	if err != nil {
		return err
	}
	s.authToken = access
	return nil
}

func (s *StepsContext) iAmNotSignedIn() error {
	s.authToken = ""
	return nil
}

var placeholder = regexp.MustCompile(`\{(\w+)\}`)

// expand replaces {name} with values remembered earlier in the scenario.
func (s *StepsContext) expand(in string) string {
	return placeholder.ReplaceAllStringFunc(in, func(m string) string {
		if v, ok := s.remembered[m[1:len(m)-1]]; ok {
			return v
		}
		return m
	})
}

func (s *StepsContext) do(method, path string, body io.Reader) error {
	req, err := http.NewRequest(method, s.tc.ServerURL+s.expand(path), body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.authToken)
	}
	resp, err := s.tc.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	s.response = resp
	s.responseBody, err = io.ReadAll(resp.Body)
	return err
}

func (s *StepsContext) iSendARequestTo(method, path string) error {
	return s.do(method, path, nil)
}

func (s *StepsContext) iSendARequestWith(method, path string, body *godog.DocString) error {
	return s.do(method, path, bytes.NewBufferString(s.expand(body.Content)))
}

func (s *StepsContext) theResponseStatusShouldBe(expected int) error {
	if s.response == nil {
		return fmt.Errorf("no response")
	}
	if s.response.StatusCode != expected {
		return fmt.Errorf("expected status %d, got %d: %s", expected, s.response.StatusCode, string(s.responseBody))
	}
	return nil
}

// field walks a dotted path such as "error.code" or "sites.0.name".
func (s *StepsContext) field(path string) (interface{}, error) {
	var doc interface{}
	if err := json.Unmarshal(s.responseBody, &doc); err != nil {
		return nil, fmt.Errorf("response is not JSON: %w", err)
	}
	cur := doc
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]interface{}:
			v, ok := node[part]
			if !ok {
				return nil, fmt.Errorf("field %q missing in %s", part, string(s.responseBody))
			}
			cur = v
		case []interface{}:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return nil, fmt.Errorf("index %q out of range", part)
			}
			cur = node[i]
		default:
			return nil, fmt.Errorf("cannot descend into %q", part)
		}
	}
	return cur, nil
}

func (s *StepsContext) theResponseFieldShouldBe(path, expected string) error {
	v, err := s.field(path)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(v); got != s.expand(expected) {
		return fmt.Errorf("expected %s to be %q, got %q", path, expected, got)
	}
	return nil
}

func (s *StepsContext) theResponseFieldShouldHaveItems(path string, n int) error {
	v, err := s.field(path)
	if err != nil {
		return err
	}
	items, ok := v.([]interface{})
	if !ok {
		return fmt.Errorf("%s is not a list", path)
	}
	if len(items) != n {
		return fmt.Errorf("expected %d items in %s, got %d", n, path, len(items))
	}
	return nil
}

func (s *StepsContext) iRememberTheResponseField(path, name string) error {
	v, err := s.field(path)
	if err != nil {
		return err
	}
	s.remembered[name] = fmt.Sprint(v)
	return nil
}
