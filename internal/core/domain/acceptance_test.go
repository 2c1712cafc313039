package domain

import (
	"context"
	"fmt"
	"testing"

	"github.com/cucumber/godog"
)

// clientInfoFormWorld carries state between steps of one scenario.
type clientInfoFormWorld struct {
	blob     string
	defaults OAuth2ClientInfo
	form     *ClientInfoForm
	changes  []ClientInfoChange
}

func (w *clientInfoFormWorld) aSavedConfigurationBlob(blob string) error {
	w.blob = blob
	return nil
}

func (w *clientInfoFormWorld) aDefaultOf(field, value string) error {
	w.defaults = w.defaults.WithField(ClientInfoField(field), value)
	return nil
}

func (w *clientInfoFormWorld) theFormIsOpened() error {
	w.form = NewClientInfoForm(w.blob, w.defaults, func(c ClientInfoChange) {
		w.changes = append(w.changes, c)
	})
	return nil
}

func (w *clientInfoFormWorld) theFieldShows(field, expected string) error {
	if w.form == nil {
		return fmt.Errorf("form not opened")
	}
	if got := w.form.Record().Field(ClientInfoField(field)); got != expected {
		return fmt.Errorf("field %s: expected %q, got %q", field, expected, got)
	}
	return nil
}

func (w *clientInfoFormWorld) theFieldIsEditedTo(field, text string) error {
	if w.form == nil {
		return fmt.Errorf("form not opened")
	}
	w.form.Edit(ClientInfoField(field), text)
	return nil
}

func (w *clientInfoFormWorld) oneChangeIsAnnounced() error {
	if len(w.changes) != 1 {
		return fmt.Errorf("expected 1 change, got %d", len(w.changes))
	}
	return nil
}

func (w *clientInfoFormWorld) theAnnouncedRecordHasSetTo(field, expected string) error {
	if len(w.changes) == 0 {
		return fmt.Errorf("no changes announced")
	}
	last := w.changes[len(w.changes)-1]
	if got := last.Target.Value.Field(ClientInfoField(field)); got != expected {
		return fmt.Errorf("announced %s: expected %q, got %q", field, expected, got)
	}
	return nil
}

func (w *clientInfoFormWorld) theAnnouncementTargetsAsAnObject(name string) error {
	if len(w.changes) == 0 {
		return fmt.Errorf("no changes announced")
	}
	last := w.changes[len(w.changes)-1]
	if last.Target.Name != name {
		return fmt.Errorf("expected target name %q, got %q", name, last.Target.Name)
	}
	if last.Target.Type != "object" {
		return fmt.Errorf("expected target type object, got %q", last.Target.Type)
	}
	return nil
}

func initializeClientInfoFormScenario(sc *godog.ScenarioContext) {
	w := &clientInfoFormWorld{}

	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		*w = clientInfoFormWorld{}
		return ctx, nil
	})

	sc.Step(`^a saved configuration blob '(.*)'$`, w.aSavedConfigurationBlob)
	sc.Step(`^a default "([^"]*)" of "([^"]*)"$`, w.aDefaultOf)
	sc.Step(`^the form is opened$`, w.theFormIsOpened)
	sc.Step(`^the "([^"]*)" field shows "([^"]*)"$`, w.theFieldShows)
	sc.Step(`^the "([^"]*)" field is edited to "([^"]*)"$`, w.theFieldIsEditedTo)
	sc.Step(`^one change is announced$`, w.oneChangeIsAnnounced)
	sc.Step(`^the announced record has "([^"]*)" set to "([^"]*)"$`, w.theAnnouncedRecordHasSetTo)
	sc.Step(`^the announcement targets "([^"]*)" as an object$`, w.theAnnouncementTargetsAsAnObject)
}

func TestClientInfoFormScenarios(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: func(sc *godog.ScenarioContext) {
			initializeClientInfoFormScenario(sc)
		},
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"testdata"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("feature scenarios failed")
	}
}
