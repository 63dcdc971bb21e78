package e2e

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type BroadcastScenarioSuite struct {
	BaseWsSuite
}

func TestBroadcastScenario(t *testing.T) {
	suite.Run(t, new(BroadcastScenarioSuite))
}

func (s *BroadcastScenarioSuite) TestEveryoneGetsTheMessage() {
	// Unique labels so that a shared server does not confuse runs
	suffix := uuid.NewString()[:6]
	ash := s.Connect("ash-" + suffix)
	defer ash.Close()
	misty := s.Connect("misty-" + suffix)
	defer misty.Close()

	// Joins are visible once the welcome is read, give the server a moment
	time.Sleep(100 * time.Millisecond)

	s.step("ash says hello")
	s.Send(ash, "  hello  ")

	want := map[string]string{"usuario": "ash-" + suffix, "texto": "hello"}
	s.Equal(want, s.Read(misty))
}
