package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/operator-framework/outer-count/pkg/qbf/qdimacs"
)

func execute(args ...string) (string, error) {
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func testdata(name string) string {
	return filepath.Join("testdata", name)
}

var _ = Describe("outer-count", func() {
	DescribeTable("reports the number of outer solutions",
		func(file string, lines ...string) {
			for _, backend := range []string{"bdd", "expand"} {
				out, err := execute("--backend", backend, testdata(file))
				Expect(err).NotTo(HaveOccurred())
				for _, line := range lines {
					Expect(out).To(ContainSubstring(line), "backend %s", backend)
				}
			}
		},
		Entry("exactly one of two", "exactly-one.qdimacs",
			"number of vars: 2\n",
			"number of clauses: 2\n",
			"first quantifier: e\n",
			"size of block 1: 2\n",
			"the formula is true\n",
			"there are 2 solutions for the outermost vars\n"),
		Entry("universal contradiction", "contradiction.qdimacs",
			"first quantifier: a\n",
			"the formula is false\n",
			"1 variables were unassigned in partial (counter-)model\n",
			"there are 2 solutions for the outermost vars\n"),
		Entry("merged blocks", "alternating.qdimacs",
			"size of block 1: 2\n",
			"size of block 2: 1\n",
			"the formula is false\n",
			"there are 1 solutions for the outermost vars\n"),
		Entry("don't cares", "dont-cares.qdimacs",
			"size of block 1: 4\n",
			"3 variables were unassigned in partial (counter-)model\n",
			"current count: 8\n",
			"there are 8 solutions for the outermost vars\n"),
		Entry("empty clause", "empty-clause.qdimacs",
			"formula is empty or contains empty clause\n",
			"there are 0 solutions for the outermost vars\n"),
		Entry("overflow", "overflow.qdimacs",
			"the formula is true\n",
			"more than 2^64 (counter-)models found - counting stopped\n",
			"there are > 18446744073709551615 solutions for the outermost vars\n"),
	)

	It("announces the truth value before any progress", func() {
		out, err := execute(testdata("exactly-one.qdimacs"))
		Expect(err).NotTo(HaveOccurred())
		truth := strings.Index(out, "the formula is true")
		progress := strings.Index(out, "current count: 1")
		Expect(truth).To(BeNumerically(">=", 0))
		Expect(progress).To(BeNumerically(">", truth))
		Expect(strings.Count(out, "the formula is")).To(Equal(1))
	})

	It("prints reports in argument order", func() {
		out, err := execute("--jobs", "4", testdata("dont-cares.qdimacs"), testdata("exactly-one.qdimacs"))
		Expect(err).NotTo(HaveOccurred())
		first := strings.Index(out, "==> "+testdata("dont-cares.qdimacs")+" <==")
		second := strings.Index(out, "==> "+testdata("exactly-one.qdimacs")+" <==")
		Expect(first).To(BeNumerically(">=", 0))
		Expect(second).To(BeNumerically(">", first))
		Expect(out[first:second]).To(ContainSubstring("there are 8 solutions"))
		Expect(out[second:]).To(ContainSubstring("there are 2 solutions"))
	})

	It("reads the oracle configuration", func() {
		out, err := execute("--oracle-config", testdata("oracle.yaml"), testdata("alternating.qdimacs"))
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("there are 1 solutions for the outermost vars"))
	})

	It("writes metrics", func() {
		path := filepath.Join(GinkgoT().TempDir(), "outer-count.prom")
		_, err := execute("--metrics-file", path, testdata("exactly-one.qdimacs"))
		Expect(err).NotTo(HaveOccurred())
		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`outcome="true"`))
	})

	Context("fails", func() {
		It("without arguments", func() {
			_, err := execute()
			Expect(err).To(HaveOccurred())
		})

		It("on a missing file", func() {
			_, err := execute(testdata("missing.qdimacs"))
			var unreadable *qdimacs.InputUnreadableError
			Expect(err).To(BeAssignableToTypeOf(unreadable))
		})

		It("on a malformed prefix", func() {
			_, err := execute(testdata("malformed.qdimacs"))
			Expect(err).To(MatchError(ContainSubstring("missing terminating 0")))
		})

		It("on an unknown backend", func() {
			_, err := execute("--backend", "cdcl", testdata("exactly-one.qdimacs"))
			Expect(err).To(MatchError(ContainSubstring(`unknown oracle backend "cdcl"`)))
		})

		It("on unknown oracle configuration fields", func() {
			_, err := execute("--oracle-config", testdata("bad-oracle.yaml"), testdata("exactly-one.qdimacs"))
			Expect(err).To(MatchError(ContainSubstring("parsing oracle config")))
		})

		It("with zero jobs", func() {
			_, err := execute("--jobs", "0", testdata("exactly-one.qdimacs"))
			Expect(err).To(HaveOccurred())
		})
	})
})
