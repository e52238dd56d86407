package domainscmder_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	mnemocmder "github.com/mnemolabs/mnemo/cmd/mnemo"
	domainscmder "github.com/mnemolabs/mnemo/cmd/mnemo/domains"
)

var _ = Describe("NewDomainsCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := domainscmder.NewDomainsCmd()
		Expect(cmd.Use).To(Equal("domains"))
	})

	It("rejects positional arguments", func() {
		cmd := domainscmder.NewDomainsCmd()
		Expect(cmd.Args(cmd, []string{})).NotTo(HaveOccurred())
		Expect(cmd.Args(cmd, []string{"extra"})).To(HaveOccurred())
	})

	It("has a use subcommand", func() {
		cmd := domainscmder.NewDomainsCmd()
		names := make([]string, 0, len(cmd.Commands()))
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElement("use"))
	})

	It("allows use with at most one argument", func() {
		var use *cobra.Command
		for _, sub := range domainscmder.NewDomainsCmd().Commands() {
			if sub.Name() == "use" {
				use = sub
			}
		}
		Expect(use).NotTo(BeNil())
		Expect(use.Args(use, []string{})).NotTo(HaveOccurred())
		Expect(use.Args(use, []string{"personal"})).NotTo(HaveOccurred())
		Expect(use.Args(use, []string{"a", "b"})).To(HaveOccurred())
	})
})

var _ = Describe("domains command execution", func() {
	var (
		tmpDir  string
		origDir string
	)

	BeforeEach(func() {
		var err error
		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		tmpDir, err = os.MkdirTemp("", "mnemo-domains-*")
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

	workspacePath := func() string {
		return filepath.Join(".mnemo", "workspace.json")
	}

	It("lists successfully with no domains", func() {
		err := runRoot("domains")
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("use", func() {
		It("writes the workspace state", func() {
			err := runRoot("domains", "use", "professional")
			Expect(err).NotTo(HaveOccurred())

			data, err := os.ReadFile(workspacePath())
			Expect(err).NotTo(HaveOccurred())

			var state struct {
				Domain string `json:"domain"`
			}
			Expect(json.Unmarshal(data, &state)).To(Succeed())
			Expect(state.Domain).To(Equal("professional"))
		})

		It("clears the workspace state when called without a domain", func() {
			Expect(runRoot("domains", "use", "professional")).To(Succeed())
			_, err := os.Stat(workspacePath())
			Expect(err).NotTo(HaveOccurred())

			Expect(runRoot("domains", "use")).To(Succeed())
			_, err = os.Stat(workspacePath())
			Expect(os.IsNotExist(err)).To(BeTrue())
		})

		It("clears cleanly even when nothing was selected", func() {
			Expect(runRoot("domains", "use")).To(Succeed())
		})
	})

	It("includes the workspace domain in the listing", func() {
		Expect(runRoot("domains", "use", "health")).To(Succeed())
		Expect(runRoot("domains")).To(Succeed())
	})
})
