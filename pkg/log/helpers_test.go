package log

import (
	"bytes"
	"context"
	"os"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// createTestLogger 创建用于测试的日志记录器
func createTestLogger() (*LogHelper, *bytes.Buffer) {
	// 创建内存缓冲区捕获日志输出
	buf := &bytes.Buffer{}

	// 创建简单的编码器配置
	encoderConfig := zapcore.EncoderConfig{
		MessageKey:  "msg",
		LevelKey:    "level",
		TimeKey:     "time",
		EncodeLevel: zapcore.LowercaseLevelEncoder,
		EncodeTime:  zapcore.ISO8601TimeEncoder,
	}

	// 创建 Core
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(buf),
		zapcore.DebugLevel,
	)

	// 创建 Zap logger
	zapLogger := zap.New(core)

	// 创建 Kratos adapter
	kratosLogger := NewKratosAdapter(zapLogger)

	// 创建 LogHelper
	helper := NewLogHelper(kratosLogger)

	return helper, buf
}

func TestNewLogHelper(t *testing.T) {
	zapLogger := zap.NewNop()
	kratosLogger := NewKratosAdapter(zapLogger)
	helper := NewLogHelper(kratosLogger)

	if helper == nil {
		t.Fatal("NewLogHelper returned nil")
	}
}

func TestLogHelper_API(t *testing.T) {
	helper, buf := createTestLogger()

	helper.API("test API call", "endpoint", "/v1/analyze")

	output := buf.String()
	if output == "" {
		t.Error("API log produced no output")
	}

	// 验证输出包含 type:api 字段
	if !contains(output, "api") {
		t.Error("API log missing 'api' type field")
	}
}

func TestLogHelper_Auth(t *testing.T) {
	helper, buf := createTestLogger()

	helper.Auth("authentication successful", "user", "admin")

	output := buf.String()
	if output == "" {
		t.Error("Auth log produced no output")
	}

	if !contains(output, "auth") {
		t.Error("Auth log missing 'auth' type field")
	}
}

func TestLogHelper_Request(t *testing.T) {
	helper, buf := createTestLogger()

	helper.Request("POST", "/v1/tickets", 201, 150)

	output := buf.String()
	if output == "" {
		t.Error("Request log produced no output")
	}

	// 验证输出包含关键字段
	if !contains(output, "POST") {
		t.Error("Request log missing method")
	}
	if !contains(output, "201") {
		t.Error("Request log missing status code")
	}
}

func TestLogHelper_Success(t *testing.T) {
	helper, buf := createTestLogger()

	helper.Success("operation completed", "operation", "create_ticket")

	output := buf.String()
	if output == "" {
		t.Error("Success log produced no output")
	}

	if !contains(output, "success") {
		t.Error("Success log missing 'success' type field")
	}
}

func TestLogHelper_Database(t *testing.T) {
	helper, buf := createTestLogger()

	helper.Database("query executed", "table", "maintenance_tickets")

	output := buf.String()
	if output == "" {
		t.Error("Database log produced no output")
	}

	if !contains(output, "database") {
		t.Error("Database log missing 'database' type field")
	}
}

func TestLogHelper_Redis(t *testing.T) {
	helper, buf := createTestLogger()

	helper.Redis("cache hit", "key", "ticket:123")

	output := buf.String()
	if output == "" {
		t.Error("Redis log produced no output")
	}

	if !contains(output, "redis") {
		t.Error("Redis log missing 'redis' type field")
	}
}

func TestLogHelper_Triage(t *testing.T) {
	helper, buf := createTestLogger()

	helper.Triage("ticket scored", "priority", "CRITICAL", "score", 150.0)

	output := buf.String()
	if output == "" {
		t.Error("Triage log produced no output")
	}

	if !contains(output, "triage") {
		t.Error("Triage log missing 'triage' type field")
	}
	if !contains(output, "CRITICAL") {
		t.Error("Triage log missing priority")
	}
}

func TestLogHelper_Dispatch(t *testing.T) {
	helper, buf := createTestLogger()

	helper.Dispatch("notification sent", "user_id", "u-42", "kind", "escalation")

	output := buf.String()
	if output == "" {
		t.Error("Dispatch log produced no output")
	}

	if !contains(output, "dispatch") {
		t.Error("Dispatch log missing 'dispatch' type field")
	}
}

func TestLogHelper_Circuit(t *testing.T) {
	helper, buf := createTestLogger()

	helper.Circuit("circuit breaker opened", "destination", "http://booking:8001")

	output := buf.String()
	if output == "" {
		t.Error("Circuit log produced no output")
	}

	if !contains(output, "circuit") {
		t.Error("Circuit log missing 'circuit' type field")
	}
	// Circuit 使用 Warn 级别
	if !contains(output, "warn") {
		t.Error("Circuit log should be warn level")
	}
}

func TestLogHelper_Escalation(t *testing.T) {
	helper, buf := createTestLogger()

	helper.Escalation("SLA breached", "ticket_id", "17", "sla", "1 hour")

	output := buf.String()
	if output == "" {
		t.Error("Escalation log produced no output")
	}

	if !contains(output, "escalation") {
		t.Error("Escalation log missing 'escalation' type field")
	}
}

func TestLogHelper_RequestWithContext(t *testing.T) {
	helper, buf := createTestLogger()

	ctx := WithRequestContext(context.Background(), "req1234567", "u-42", "student")
	helper.RequestWithContext(ctx, "GET", "/v1/tickets", 200, 20)

	output := buf.String()
	if !contains(output, "req1234567") {
		t.Error("RequestWithContext log missing request ID")
	}
	if !contains(output, "u-42") {
		t.Error("RequestWithContext log missing user ID")
	}
}

func TestLogHelper_TriageWithContext(t *testing.T) {
	helper, buf := createTestLogger()

	ctx := WithRequestContext(context.Background(), "req1234567", "u-42", "staff")
	helper.TriageWithContext(ctx, "HIGH", 30.0)

	output := buf.String()
	if !contains(output, "HIGH") {
		t.Error("TriageWithContext log missing priority")
	}
	if !contains(output, "req1234567") {
		t.Error("TriageWithContext log missing request ID")
	}
}

func TestLogHelper_AllTypes(t *testing.T) {
	// 测试所有日志类型方法都能正常调用
	helper, _ := createTestLogger()

	// 不应该 panic
	helper.Ticket("ticket created")
	helper.Scheduler("escalation sweep scheduled")
	helper.Startup("service started")
	helper.Security("suspicious activity")
	helper.APIWithContext(context.Background(), "analyze called")
	helper.SlowRequest(context.Background(), "GET", "/v1/tickets", 1500, 1000)
}

// contains 检查字符串是否包含子串
func contains(s, substr string) bool {
	return len(s) >= len(substr) && (s == substr || len(s) > len(substr) && containsSubstring(s, substr))
}

func containsSubstring(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

// TestMain 设置测试环境
func TestMain(m *testing.M) {
	// 运行测试
	code := m.Run()
	os.Exit(code)
}
