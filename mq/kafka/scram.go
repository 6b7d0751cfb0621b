package kafka

import (
	"crypto/sha256"
	"crypto/sha512"
	"hash"

	"github.com/xdg-go/scram"
)

/* ========================================================================
 * SCRAM authentication for sarama
 * ======================================================================== */

// HashGeneratorFcn selects the SCRAM hash.
type HashGeneratorFcn func() hash.Hash

var (
	SHA256 HashGeneratorFcn = sha256.New
	SHA512 HashGeneratorFcn = sha512.New
)

// XDGSCRAMClient implements sarama.SCRAMClient on xdg-go/scram.
type XDGSCRAMClient struct {
	*scram.Client
	*scram.ClientConversation
	HashGeneratorFcn HashGeneratorFcn
}

// Begin starts a SCRAM conversation.
func (x *XDGSCRAMClient) Begin(userName, password, authzID string) (err error) {
	mechanism := scram.SHA256
	if x.HashGeneratorFcn != nil && x.HashGeneratorFcn().Size() == sha512.Size {
		mechanism = scram.SHA512
	}
	x.Client, err = mechanism.NewClient(userName, password, authzID)
	if err != nil {
		return err
	}
	x.ClientConversation = x.Client.NewConversation()
	return nil
}

// Step advances the conversation with the broker's challenge.
func (x *XDGSCRAMClient) Step(challenge string) (response string, err error) {
	return x.ClientConversation.Step(challenge)
}

// Done reports whether the conversation finished.
func (x *XDGSCRAMClient) Done() bool {
	return x.ClientConversation.Done()
}
