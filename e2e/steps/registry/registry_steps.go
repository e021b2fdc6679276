//go:build e2e

package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/cucumber/godog"

	"credreg/pkg/domain"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POSTWithHeaders(path string, body any, headers map[string]string) error
	GET(path string, headers map[string]string) error
	GetResponseField(field string) (any, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	Identity(alias string) domain.Identity
	Recipient(alias string) domain.Identity
	CallerHeaders(identity domain.Identity) (map[string]string, error)
	LastIssued() domain.CredentialID
	SetLastIssued(id domain.CredentialID)
	SavedCount() uint64
	SetSavedCount(n uint64)
}

// RegisterSteps registers registry lifecycle step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &registrySteps{tc: tc, issued: make(map[string]domain.CredentialID)}

	ctx.Step(`^I note the credential count$`, steps.noteCount)
	ctx.Step(`^the credential count should have grown by (\d+)$`, steps.countGrewBy)

	ctx.Step(`^"([^"]*)" issues "([^"]*)" to "([^"]*)"$`, steps.issue)
	ctx.Step(`^"([^"]*)" issues "([^"]*)" to "([^"]*)" as "([^"]*)"$`, steps.issueAs)
	ctx.Step(`^an unauthenticated caller claiming "([^"]*)" issues "([^"]*)" to "([^"]*)"$`, steps.issueUnauthenticated)
	ctx.Step(`^"([^"]*)" revokes the last credential$`, steps.revokeLast)
	ctx.Step(`^"([^"]*)" revokes credential "([^"]*)"$`, steps.revokeNamed)

	ctx.Step(`^I verify the last credential$`, steps.verifyLast)
	ctx.Step(`^I verify credential (\d+)$`, steps.verifyID)
	ctx.Step(`^I fetch the last credential$`, steps.fetchLast)
	ctx.Step(`^I list the credentials of "([^"]*)"$`, steps.listRecipient)

	ctx.Step(`^the credential should be valid$`, steps.shouldBeValid)
	ctx.Step(`^the credential should be invalid$`, steps.shouldBeInvalid)
	ctx.Step(`^the credential should belong to "([^"]*)"$`, steps.shouldBelongTo)
	ctx.Step(`^the list should contain "([^"]*)" then "([^"]*)"$`, steps.listOrder)
	ctx.Step(`^the list should be empty$`, steps.listEmpty)
}

type registrySteps struct {
	tc     TestContext
	issued map[string]domain.CredentialID
}

func (s *registrySteps) count() (uint64, error) {
	if err := s.tc.GET("/credentials/count", nil); err != nil {
		return 0, err
	}
	var body struct {
		Count uint64 `json:"count"`
	}
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &body); err != nil {
		return 0, fmt.Errorf("decode count: %w", err)
	}
	return body.Count, nil
}

func (s *registrySteps) noteCount(ctx context.Context) error {
	n, err := s.count()
	if err != nil {
		return err
	}
	s.tc.SetSavedCount(n)
	return nil
}

func (s *registrySteps) countGrewBy(ctx context.Context, delta int) error {
	n, err := s.count()
	if err != nil {
		return err
	}
	if want := s.tc.SavedCount() + uint64(delta); n != want {
		return fmt.Errorf("expected count %d but got %d", want, n)
	}
	return nil
}

func (s *registrySteps) post(path string, body any, headers map[string]string) error {
	if err := s.tc.POSTWithHeaders(path, body, headers); err != nil {
		return err
	}
	if s.tc.GetLastResponseStatus() == 201 {
		var resp struct {
			CredentialID domain.CredentialID `json:"credential_id"`
		}
		if err := json.Unmarshal(s.tc.GetLastResponseBody(), &resp); err != nil {
			return fmt.Errorf("decode issue response: %w", err)
		}
		s.tc.SetLastIssued(resp.CredentialID)
	}
	return nil
}

func issueBody(recipient domain.Identity, title string) map[string]string {
	return map[string]string{
		"recipient":          recipient.String(),
		"title":              title,
		"description":        "e2e issued credential",
		"course_id":          "E2E-101",
		"document_reference": "ipfs://e2e",
	}
}

func (s *registrySteps) issue(ctx context.Context, issuer, title, recipient string) error {
	headers, err := s.tc.CallerHeaders(s.tc.Identity(issuer))
	if err != nil {
		return err
	}
	return s.post("/credentials", issueBody(s.tc.Recipient(recipient), title), headers)
}

func (s *registrySteps) issueAs(ctx context.Context, issuer, title, recipient, name string) error {
	if err := s.issue(ctx, issuer, title, recipient); err != nil {
		return err
	}
	if s.tc.GetLastResponseStatus() != 201 {
		return fmt.Errorf("issue %q failed with status %d: %s", name, s.tc.GetLastResponseStatus(), s.tc.GetLastResponseBody())
	}
	s.issued[name] = s.tc.LastIssued()
	return nil
}

func (s *registrySteps) issueUnauthenticated(ctx context.Context, claimed, title, recipient string) error {
	headers := map[string]string{"X-Identity": s.tc.Identity(claimed).String()}
	return s.post("/credentials", issueBody(s.tc.Recipient(recipient), title), headers)
}

func (s *registrySteps) revoke(revoker string, id domain.CredentialID) error {
	headers, err := s.tc.CallerHeaders(s.tc.Identity(revoker))
	if err != nil {
		return err
	}
	return s.tc.POSTWithHeaders(fmt.Sprintf("/credentials/%d/revoke", id), nil, headers)
}

func (s *registrySteps) revokeLast(ctx context.Context, revoker string) error {
	return s.revoke(revoker, s.tc.LastIssued())
}

func (s *registrySteps) revokeNamed(ctx context.Context, revoker, name string) error {
	id, ok := s.issued[name]
	if !ok {
		return fmt.Errorf("no credential named %q", name)
	}
	return s.revoke(revoker, id)
}

func (s *registrySteps) verifyLast(ctx context.Context) error {
	return s.verifyID(ctx, int(s.tc.LastIssued()))
}

func (s *registrySteps) verifyID(ctx context.Context, id int) error {
	return s.tc.GET(fmt.Sprintf("/credentials/%d/verify", id), nil)
}

func (s *registrySteps) fetchLast(ctx context.Context) error {
	return s.tc.GET(fmt.Sprintf("/credentials/%d", s.tc.LastIssued()), nil)
}

func (s *registrySteps) listRecipient(ctx context.Context, recipient string) error {
	return s.tc.GET("/recipients/"+s.tc.Recipient(recipient).String()+"/credentials", nil)
}

func (s *registrySteps) valid() (bool, error) {
	v, err := s.tc.GetResponseField("valid")
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("valid is %T, not bool", v)
	}
	return b, nil
}

func (s *registrySteps) shouldBeValid(ctx context.Context) error {
	ok, err := s.valid()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("expected credential to be valid: %s", s.tc.GetLastResponseBody())
	}
	return nil
}

func (s *registrySteps) shouldBeInvalid(ctx context.Context) error {
	ok, err := s.valid()
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("expected credential to be invalid: %s", s.tc.GetLastResponseBody())
	}
	return nil
}

func (s *registrySteps) shouldBelongTo(ctx context.Context, recipient string) error {
	v, err := s.tc.GetResponseField("recipient")
	if err != nil {
		return err
	}
	if want := s.tc.Recipient(recipient).String(); v != want {
		return fmt.Errorf("expected recipient %s but got %v", want, v)
	}
	return nil
}

func (s *registrySteps) listed() ([]domain.CredentialID, error) {
	var body struct {
		CredentialIDs []domain.CredentialID `json:"credential_ids"`
	}
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &body); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	return body.CredentialIDs, nil
}

func (s *registrySteps) listOrder(ctx context.Context, first, second string) error {
	ids, err := s.listed()
	if err != nil {
		return err
	}
	want := []domain.CredentialID{s.issued[first], s.issued[second]}
	if !slices.Equal(ids, want) {
		return fmt.Errorf("expected credentials %v but got %v", want, ids)
	}
	return nil
}

func (s *registrySteps) listEmpty(ctx context.Context) error {
	ids, err := s.listed()
	if err != nil {
		return err
	}
	if ids == nil || len(ids) != 0 {
		return fmt.Errorf("expected empty list but got %v (%s)", ids, s.tc.GetLastResponseBody())
	}
	return nil
}
