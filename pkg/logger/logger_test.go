package logger_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/mnemolabs/mnemo/pkg/logger"
)

var _ = Describe("Logger", func() {
	Describe("NewLoggerWithWriters", func() {
		It("writes structured output to the provided writer", func() {
			var buf bytes.Buffer

			log := logger.NewLoggerWithWriters(false, &buf)
			log.Info("record stored", zap.String("domain", "personal"))

			Expect(buf.String()).To(ContainSubstring("record stored"))
			Expect(buf.String()).To(ContainSubstring("personal"))
			Expect(buf.String()).To(ContainSubstring("INFO"))
		})

		It("suppresses debug output by default", func() {
			var buf bytes.Buffer

			log := logger.NewLoggerWithWriters(false, &buf)
			log.Debug("consolidation detail")

			Expect(buf.String()).To(BeEmpty())
		})

		It("emits debug output when debug is enabled", func() {
			var buf bytes.Buffer

			log := logger.NewLoggerWithWriters(true, &buf)
			log.Debug("consolidation detail")

			Expect(buf.String()).To(ContainSubstring("consolidation detail"))
		})

		It("fans output out to every writer", func() {
			var first, second bytes.Buffer

			log := logger.NewLoggerWithWriters(false, &first, &second)
			log.Info("fan out")

			Expect(first.String()).To(ContainSubstring("fan out"))
			Expect(second.String()).To(ContainSubstring("fan out"))
		})
	})
})
