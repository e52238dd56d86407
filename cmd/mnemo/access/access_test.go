package accesscmder_test

import (
	"bytes"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	mnemocmder "github.com/mnemolabs/mnemo/cmd/mnemo"
	accesscmder "github.com/mnemolabs/mnemo/cmd/mnemo/access"
)

func findSubcommand(parent *cobra.Command, name string) *cobra.Command {
	for _, sub := range parent.Commands() {
		if sub.Name() == name {
			return sub
		}
	}
	return nil
}

var _ = Describe("NewAccessCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := accesscmder.NewAccessCmd()
		Expect(cmd.Use).To(Equal("access"))
	})

	It("has request, resolve, and list subcommands", func() {
		cmd := accesscmder.NewAccessCmd()
		cmds := cmd.Commands()
		subcommands := make([]string, 0, len(cmds))
		for _, sub := range cmds {
			subcommands = append(subcommands, sub.Name())
		}
		Expect(subcommands).To(ContainElements("request", "resolve", "list"))
	})

	It("requires three arguments for request", func() {
		sub := findSubcommand(accesscmder.NewAccessCmd(), "request")
		Expect(sub).NotTo(BeNil())
		Expect(sub.Args(sub, []string{"a", "b"})).To(HaveOccurred())
		Expect(sub.Args(sub, []string{"a", "b", "read"})).NotTo(HaveOccurred())
		Expect(sub.Args(sub, []string{"a", "b", "read", "extra"})).To(HaveOccurred())
	})

	It("requires one argument for resolve", func() {
		sub := findSubcommand(accesscmder.NewAccessCmd(), "resolve")
		Expect(sub).NotTo(BeNil())
		Expect(sub.Args(sub, []string{})).To(HaveOccurred())
		Expect(sub.Args(sub, []string{"some-id"})).NotTo(HaveOccurred())
	})

	It("has a justification flag on request", func() {
		sub := findSubcommand(accesscmder.NewAccessCmd(), "request")
		Expect(sub).NotTo(BeNil())
		flag := sub.Flags().Lookup("justification")
		Expect(flag).NotTo(BeNil())
		Expect(flag.Shorthand).To(Equal("j"))
	})

	It("has approve and deny flags on resolve", func() {
		sub := findSubcommand(accesscmder.NewAccessCmd(), "resolve")
		Expect(sub).NotTo(BeNil())
		Expect(sub.Flags().Lookup("approve")).NotTo(BeNil())
		Expect(sub.Flags().Lookup("deny")).NotTo(BeNil())
	})

	It("has a status filter flag on list", func() {
		sub := findSubcommand(accesscmder.NewAccessCmd(), "list")
		Expect(sub).NotTo(BeNil())
		Expect(sub.Flags().Lookup("status")).NotTo(BeNil())
	})
})

var _ = Describe("access command execution", func() {
	var (
		tmpDir  string
		origDir string
	)

	BeforeEach(func() {
		var err error
		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		tmpDir, err = os.MkdirTemp("", "mnemo-access-*")
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(tmpDir)).To(Succeed())
		Expect(os.Mkdir(".mnemo", 0o755)).To(Succeed())
	})

	AfterEach(func() {
		Expect(os.Chdir(origDir)).To(Succeed())
		Expect(os.RemoveAll(tmpDir)).To(Succeed())
	})

	runRoot := func(args ...string) error {
		root := mnemocmder.NewMnemoCmd()
		buf := &bytes.Buffer{}
		root.SetOut(buf)
		root.SetErr(buf)
		root.SetArgs(args)
		return root.Execute()
	}

	Describe("request", func() {
		It("submits a pending request", func() {
			err := runRoot("access", "request", "personal", "professional", "read",
				"--justification", "meeting prefs")
			Expect(err).NotTo(HaveOccurred())
		})

		It("rejects a request within one domain", func() {
			err := runRoot("access", "request", "personal", "personal", "read",
				"--justification", "loop")
			Expect(err).To(MatchError(ContainSubstring("must differ from source domain")))
		})

		It("rejects unknown operations", func() {
			err := runRoot("access", "request", "personal", "professional", "delete",
				"--justification", "cleanup")
			Expect(err).To(MatchError(ContainSubstring("unknown operation")))
		})

		It("requires a justification", func() {
			err := runRoot("access", "request", "personal", "professional", "read")
			Expect(err).To(MatchError(ContainSubstring("validation failed on justification")))
		})
	})

	Describe("resolve", func() {
		It("requires exactly one of approve or deny", func() {
			err := runRoot("access", "resolve", "some-id")
			Expect(err).To(MatchError(ContainSubstring("exactly one of --approve or --deny")))
		})

		It("rejects approve and deny together", func() {
			err := runRoot("access", "resolve", "some-id", "--approve", "--deny")
			Expect(err).To(MatchError(ContainSubstring("exactly one of --approve or --deny")))
		})

		It("errors for an unknown request id", func() {
			err := runRoot("access", "resolve", "no-such-request", "--approve")
			Expect(err).To(MatchError(ContainSubstring("not found")))
		})
	})

	Describe("list", func() {
		It("succeeds with no requests", func() {
			err := runRoot("access", "list")
			Expect(err).NotTo(HaveOccurred())
		})

		It("accepts a valid status filter", func() {
			err := runRoot("access", "list", "--status", "pending")
			Expect(err).NotTo(HaveOccurred())
		})

		It("rejects an unknown status filter", func() {
			err := runRoot("access", "list", "--status", "bogus")
			Expect(err).To(MatchError(ContainSubstring(`unknown status "bogus"`)))
		})
	})
})
