package log_test

import (
	"context"
	"errors"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/propertyhub/lease-planner/pkg/log"
	"github.com/propertyhub/lease-planner/pkg/requestid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var _ = Describe("structured logger", Ordered, func() {
	var (
		logs *observer.ObservedLogs
		undo func()
	)

	BeforeEach(func() {
		var core zapcore.Core
		core, logs = observer.New(zapcore.DebugLevel)
		undo = zap.ReplaceGlobals(zap.New(core))
	})

	AfterEach(func() {
		undo()
	})

	It("attaches operation fields and the request id to every entry", func() {
		id := uuid.New()
		ctx := requestid.ToContext(context.TODO(), "req-1")

		tracer := log.NewDebugLogger("test_service").
			WithContext(ctx).
			Operation("apply_action").
			WithUUID("contract_id", id).
			Build()
		tracer.Step("loaded").WithString("status", "draft").Log()
		tracer.Success().WithInt("count", 2).Log()

		Expect(logs.Len()).To(Equal(2))
		step := logs.All()[0]
		Expect(step.LoggerName).To(Equal("test_service"))
		Expect(step.Level).To(Equal(zapcore.DebugLevel))
		Expect(step.ContextMap()).To(HaveKeyWithValue("operation", "apply_action"))
		Expect(step.ContextMap()).To(HaveKeyWithValue("request_id", "req-1"))
		Expect(step.ContextMap()).To(HaveKeyWithValue("contract_id", id.String()))
		Expect(step.ContextMap()).To(HaveKeyWithValue("status", "draft"))

		success := logs.All()[1]
		Expect(success.ContextMap()).To(HaveKeyWithValue("count", int64(2)))
		Expect(success.ContextMap()).To(HaveKey("duration"))
	})

	It("logs errors at error level", func() {
		tracer := log.NewDebugLogger("test_service").Operation("submit").Build()
		tracer.Error(errors.New("boom")).Log()

		entries := logs.FilterLevelExact(zapcore.ErrorLevel).All()
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].ContextMap()).To(HaveKeyWithValue("error", "boom"))
		Expect(entries[0].ContextMap()).NotTo(HaveKey("request_id"))
	})
})
