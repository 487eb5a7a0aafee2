package methodscmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	recallcmder "github.com/papercomputeco/recall/cmd/recall"
)

var _ = Describe("Methods command", func() {
	var (
		configDir string
		out       *bytes.Buffer
	)

	BeforeEach(func() {
		configDir = GinkgoT().TempDir()
		out = &bytes.Buffer{}
	})

	execute := func(args ...string) error {
		cmd := recallcmder.NewRecallCmd()
		cmd.SetOut(out)
		cmd.SetArgs(append([]string{"methods", "--config-dir", configDir}, args...))
		return cmd.Execute()
	}

	It("lists the default registry", func() {
		Expect(execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("http://localhost:6030/search"))
		Expect(out.String()).To(ContainSubstring("http://localhost:6025/search"))
		Expect(out.String()).NotTo(ContainSubstring("overridden"))
	})

	It("applies port overrides from config.toml", func() {
		toml := "[retrieval.ports]\ndense_small = 7002\n"
		Expect(os.WriteFile(filepath.Join(configDir, "config.toml"), []byte(toml), 0o600)).To(Succeed())

		Expect(execute("--host", "10.0.0.5")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("http://10.0.0.5:7002/search"))
		Expect(out.String()).To(ContainSubstring("overridden"))
	})

	It("rejects invalid port overrides", func() {
		toml := "[retrieval.ports]\nbm25 = 70000\n"
		Expect(os.WriteFile(filepath.Join(configDir, "config.toml"), []byte(toml), 0o600)).To(Succeed())

		Expect(execute()).To(HaveOccurred())
	})
})
