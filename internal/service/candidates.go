package service

import (
	"github.com/homecopilot/core/internal/candidate"
	"github.com/homecopilot/core/internal/copilotcore"
	"github.com/homecopilot/core/internal/dispatcher"
)

// List returns candidates, optionally filtered by state (§6.3).
func (c *Core) List(state *candidate.State) []*candidate.Candidate {
	return c.candidates.List(state)
}

// Decide applies a terminal transition to a candidate and fans the
// resulting lifecycle event out on the dispatcher (§6.3, §4.4). On accept,
// the synapse between the candidate's pattern and "candidate" is reinforced
// positively; on dismiss, it is reinforced negatively. The weight is only
// recorded in the synapse table; mining and candidate creation do not read
// it.
func (c *Core) Decide(id copilotcore.CandidateID, decision candidate.Decision, reason string) (*candidate.Candidate, error) {
	nowMs := now()
	cd, event, err := c.candidates.Decide(id, decision, nowMs)
	if err != nil {
		return nil, err
	}

	c.synapses.OnFeedback(string(cd.PatternID), "candidate", decision == candidate.DecisionAccepted, nowMs)

	topic := dispatcher.TopicCandidateDismissed
	if decision == candidate.DecisionAccepted {
		topic = dispatcher.TopicCandidateAccepted
	}
	c.dispatch.Publish(topic, "candidate-store", nowMs, struct {
		CandidateID copilotcore.CandidateID
		PatternID   copilotcore.PatternID
		Reason      string
	}{event.CandidateID, event.PatternID, reason})

	return cd, nil
}

// Subscribe registers handler for topic, returning an unsubscribe func
// (§6.3: CandidateCreated/CandidateAccepted/CandidateDismissed, and any
// other published topic).
func (c *Core) Subscribe(topic dispatcher.Topic, handler dispatcher.Handler) func() {
	return c.dispatch.Subscribe(topic, handler)
}

// AcknowledgeAdoption publishes a pass-through AutomationAdoptionAcked
// event for an accepted candidate. Callers outside this module use it to
// confirm that an accepted candidate was turned into a live automation;
// no automation logic lives here, only the dispatcher fan-out.
func (c *Core) AcknowledgeAdoption(id copilotcore.CandidateID) error {
	cd, err := c.candidates.Get(id)
	if err != nil {
		return err
	}
	if cd.State != candidate.StateAccepted {
		return copilotcore.InvalidInput("candidate %s is not accepted", id)
	}

	c.dispatch.Publish(dispatcher.TopicAutomationAdoptionAcked, "candidate-store", now(), struct {
		CandidateID copilotcore.CandidateID
		PatternID   copilotcore.PatternID
	}{cd.CandidateID, cd.PatternID})
	return nil
}
