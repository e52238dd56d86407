package consolidatecmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	mnemocmder "github.com/mnemolabs/mnemo/cmd/mnemo"
	consolidatecmder "github.com/mnemolabs/mnemo/cmd/mnemo/consolidate"
)

var _ = Describe("NewConsolidateCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := consolidatecmder.NewConsolidateCmd()
		Expect(cmd.Use).To(Equal("consolidate"))
	})

	It("rejects positional arguments", func() {
		cmd := consolidatecmder.NewConsolidateCmd()
		Expect(cmd.Args(cmd, []string{})).NotTo(HaveOccurred())
		Expect(cmd.Args(cmd, []string{"extra"})).To(HaveOccurred())
	})

	It("has domain, batch, and all flags", func() {
		cmd := consolidatecmder.NewConsolidateCmd()
		Expect(cmd.Flags().Lookup("domain")).NotTo(BeNil())

		batch := cmd.Flags().Lookup("batch")
		Expect(batch).NotTo(BeNil())
		Expect(batch.Shorthand).To(Equal("b"))
		Expect(batch.DefValue).To(Equal("0"))

		all := cmd.Flags().Lookup("all")
		Expect(all).NotTo(BeNil())
		Expect(all.DefValue).To(Equal("false"))
	})
})

var _ = Describe("consolidate execution", func() {
	var (
		tmpDir  string
		origDir string
	)

	BeforeEach(func() {
		var err error
		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		tmpDir, err = os.MkdirTemp("", "mnemo-consolidate-*")
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

	It("runs a pass for an explicit domain", func() {
		err := runRoot("consolidate", "--domain", "professional")
		Expect(err).NotTo(HaveOccurred())
	})

	It("handles --all with no domains", func() {
		err := runRoot("consolidate", "--all")
		Expect(err).NotTo(HaveOccurred())
	})

	It("falls back to the workspace domain", func() {
		state := []byte(`{"domain":"personal"}`)
		Expect(os.WriteFile(filepath.Join(".mnemo", "workspace.json"), state, 0o600)).To(Succeed())

		err := runRoot("consolidate")
		Expect(err).NotTo(HaveOccurred())
	})

	It("errors when no domain is given or selected", func() {
		err := runRoot("consolidate")
		Expect(err).To(MatchError(ContainSubstring("no domain given")))
	})

	It("takes the batch size from config when the flag is not set", func() {
		toml := []byte("[consolidation]\nbatch_size = 25\n")
		Expect(os.WriteFile(filepath.Join(".mnemo", "config.toml"), toml, 0o600)).To(Succeed())

		cmd := consolidatecmder.NewConsolidateCmd()
		Expect(cmd.PreRunE(cmd, nil)).To(Succeed())

		// The batch flag value is bound to the commander field, so the
		// config default shows through the lookup.
		Expect(cmd.Flags().Lookup("batch").Value.String()).To(Equal("25"))
	})

	It("keeps an explicit batch flag over the config value", func() {
		toml := []byte("[consolidation]\nbatch_size = 25\n")
		Expect(os.WriteFile(filepath.Join(".mnemo", "config.toml"), toml, 0o600)).To(Succeed())

		cmd := consolidatecmder.NewConsolidateCmd()
		Expect(cmd.Flags().Set("batch", "10")).To(Succeed())
		Expect(cmd.PreRunE(cmd, nil)).To(Succeed())

		Expect(cmd.Flags().Lookup("batch").Value.String()).To(Equal("10"))
	})
})
