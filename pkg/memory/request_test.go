package memory_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mnemolabs/mnemo/pkg/memory"
)

var _ = Describe("RequestStatus", func() {
	It("treats pending as the only non-terminal state", func() {
		Expect(memory.StatusPending.IsTerminal()).To(BeFalse())
		Expect(memory.StatusApproved.IsTerminal()).To(BeTrue())
		Expect(memory.StatusDenied.IsTerminal()).To(BeTrue())
	})
})

var _ = Describe("Operation", func() {
	It("accepts read and write only", func() {
		Expect(memory.OperationRead.IsValid()).To(BeTrue())
		Expect(memory.OperationWrite.IsValid()).To(BeTrue())
		Expect(memory.Operation("delete").IsValid()).To(BeFalse())
	})
})
