package cmd

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/iopmpsim/datarecording"
	"github.com/sarchlab/iopmpsim/verification"
)

const headerPath = "../../../iopmp/regmap/testdata/rv_iopmp.h"

func execute(args ...string) (string, error) {
	var out bytes.Buffer

	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	err := root.Execute()

	return out.String(), err
}

var _ = Describe("Command line", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	Context("regmap", func() {
		It("should print the generated register map", func() {
			out, err := execute("regmap", "--env-file", "")

			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("0x0000  VERSION"))
			Expect(out).To(ContainSubstring("ENTRY_CFG15"))
		})

		It("should print the same map from the generated header", func() {
			generated, err := execute("regmap")
			Expect(err).NotTo(HaveOccurred())

			parsed, err := execute("regmap", "--header", headerPath)
			Expect(err).NotTo(HaveOccurred())

			Expect(parsed).To(Equal(generated))
		})

		It("should follow the hardware configuration", func() {
			config := filepath.Join(dir, "hw.json")
			Expect(os.WriteFile(config,
				[]byte(`{"domains":2,"entries":8,"sources":2}`), 0o600)).
				To(Succeed())

			out, err := execute("regmap", "--config", config)

			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("ENTRY_CFG7"))
			Expect(out).NotTo(ContainSubstring("ENTRY_CFG8"))
		})

		It("should reject a header that misses registers", func() {
			config := filepath.Join(dir, "hw.json")
			Expect(os.WriteFile(config,
				[]byte(`{"entries":32}`), 0o600)).To(Succeed())

			_, err := execute("regmap", "--config", config,
				"--header", headerPath)

			Expect(err).To(MatchError(ContainSubstring("ENTRY_CFG16")))
		})
	})

	Context("run", func() {
		It("should pass the end-to-end scenario", func() {
			out, err := execute("run", "end-to-end", "--seed", "1")

			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("seed 1"))
			Expect(out).To(ContainSubstring("3 transactions (2 denied), 0 mismatches"))
		})

		It("should log simulation events when asked", func() {
			out, err := execute("run", "end-to-end", "--seed", "1",
				"--log-events")

			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("sim.TickEvent -> Sim.IOPMP"))
		})

		It("should refuse an unknown scenario", func() {
			_, err := execute("run", "no-such-scenario", "--seed", "1")

			Expect(err).To(MatchError(ContainSubstring("unknown scenario")))
		})

		It("should reject a broken hardware configuration", func() {
			config := filepath.Join(dir, "hw.json")
			Expect(os.WriteFile(config, []byte(`{"domain":4}`), 0o600)).
				To(Succeed())

			_, err := execute("run", "end-to-end", "--config", config)

			Expect(err).To(HaveOccurred())
		})

		It("should take defaults from an env file", func() {
			envFile := filepath.Join(dir, "test.env")
			Expect(os.WriteFile(envFile, []byte("IOPMP_SEED=7\n"), 0o600)).
				To(Succeed())
			DeferCleanup(os.Unsetenv, "IOPMP_SEED")

			out, err := execute("run", "bypass", "--env-file", envFile)

			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("seed 7"))
		})

		It("should prefer the flag over the environment", func() {
			GinkgoT().Setenv("IOPMP_SEED", "7")

			out, err := execute("run", "bypass", "--seed", "9")

			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("seed 9"))
		})

		It("should fail on a missing env file that is asked for", func() {
			_, err := execute("run", "bypass",
				"--env-file", filepath.Join(dir, "missing.env"))

			Expect(err).To(HaveOccurred())
		})
	})

	Context("report", func() {
		It("should summarize a recorded run", func() {
			db := filepath.Join(dir, "run")

			_, err := execute("run", "end-to-end", "--seed", "3",
				"--trace-db", db)
			Expect(err).NotTo(HaveOccurred())

			out, err := execute("report", db)

			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("seed 3"))
			Expect(out).To(ContainSubstring("3 checks, 0 failed"))
			Expect(out).To(ContainSubstring("  allowed: 1\n"))
			Expect(out).To(ContainSubstring("  denied:NoDomain: 1\n"))
			Expect(out).NotTo(ContainSubstring("SCENARIO"))
		})

		It("should accept the file name with its suffix", func() {
			db := filepath.Join(dir, "run")

			_, err := execute("run", "bypass", "--seed", "3",
				"--trace-db", db)
			Expect(err).NotTo(HaveOccurred())

			out, err := execute("report", db+".sqlite3")

			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("seed 3"))
		})

		It("should list failed checks up to the limit", func() {
			db := filepath.Join(dir, "failed")

			w := datarecording.New(db)
			w.CreateTable(verification.CheckTableName, verification.CheckEntry{})
			for i := 0; i < 3; i++ {
				w.InsertData(verification.CheckTableName, verification.CheckEntry{
					Scenario: "tor-sweep",
					SID:      i,
					Address:  "0x1000",
					Length:   4,
					Access:   "R",
					Expected: "denied:NoMatch",
					Observed: "OKAY",
				})
			}
			Expect(w.Close()).To(Succeed())

			out, err := execute("report", db, "--limit", "2")

			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("3 checks, 3 failed"))
			Expect(out).To(MatchRegexp(`tor-sweep\s+1\s+0x1000\s+4\s+R\s+denied:NoMatch\s+OKAY`))
			Expect(out).NotTo(MatchRegexp(`tor-sweep\s+2\s`))
			Expect(out).To(ContainSubstring("... 1 more"))
			Expect(out).NotTo(ContainSubstring("outcomes:"))
		})

		It("should fail on a missing recording", func() {
			_, err := execute("report", filepath.Join(dir, "none"))

			Expect(err).To(HaveOccurred())
		})
	})
})
