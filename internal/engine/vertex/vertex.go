// Package vertex implements an evalctx.LanguageEngine backed by Vertex AI's
// gRPC PredictionService, invoked as a dynamic message the way the
// teacher's grpc builtins invoke arbitrary proto services: load a .proto
// descriptor, build a dynamic.Message request, and Invoke it over a plain
// grpc.ClientConn rather than a generated client stub.
package vertex

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"github.com/wigmorewelsh/structured-agent/internal/evalctx"
	"github.com/wigmorewelsh/structured-agent/internal/value"
)

// Engine talks to Vertex AI's PredictionService.GenerateContent RPC via a
// proto descriptor loaded at construction time, rather than a generated
// Go client — the same dynamic-invocation approach the teacher uses for
// arbitrary user-supplied gRPC services.
type Engine struct {
	conn       *grpc.ClientConn
	method     *desc.MethodDescriptor
	project    string
	location   string
	modelName  string
}

// Config names the Vertex endpoint and the proto file describing the
// PredictionService.
type Config struct {
	Target      string // e.g. "us-central1-aiplatform.googleapis.com:443"
	ProtoPath   string // path to a .proto file declaring the service
	ImportPath  string
	MethodPath  string // "google.cloud.aiplatform.v1.PredictionService/GenerateContent"
	Project     string
	Location    string
	ModelName   string
}

// New loads the proto descriptor, dials the gRPC endpoint, and resolves
// the method descriptor for cfg.MethodPath.
func New(cfg Config) (*Engine, error) {
	parser := protoparse.Parser{ImportPaths: []string{cfg.ImportPath}}
	fds, err := parser.ParseFiles(cfg.ProtoPath)
	if err != nil {
		return nil, fmt.Errorf("vertex: parse proto: %w", err)
	}

	md, err := findMethod(fds, cfg.MethodPath)
	if err != nil {
		return nil, err
	}

	conn, err := grpc.NewClient(cfg.Target, grpc.WithTransportCredentials(credentials.NewTLS(nil)))
	if err != nil {
		return nil, fmt.Errorf("vertex: dial %s: %w", cfg.Target, err)
	}

	return &Engine{conn: conn, method: md, project: cfg.Project, location: cfg.Location, modelName: cfg.ModelName}, nil
}

func findMethod(fds []*desc.FileDescriptor, methodPath string) (*desc.MethodDescriptor, error) {
	parts := strings.SplitN(methodPath, "/", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("vertex: method path %q must be \"package.Service/Method\"", methodPath)
	}
	serviceName, methodName := parts[0], parts[1]
	for _, fd := range fds {
		for _, svc := range fd.GetServices() {
			if svc.GetFullyQualifiedName() == serviceName {
				for _, m := range svc.GetMethods() {
					if m.GetName() == methodName {
						return m, nil
					}
				}
			}
		}
	}
	return nil, fmt.Errorf("vertex: method %q not found in loaded descriptors", methodPath)
}

// Close releases the underlying connection.
func (e *Engine) Close() error { return e.conn.Close() }

func (e *Engine) invoke(ctx context.Context, prompt string) (string, error) {
	reqMsg := dynamic.NewMessage(e.method.GetInputType())
	if err := reqMsg.TrySetField(reqMsg.FindFieldDescriptorByName("model"),
		fmt.Sprintf("projects/%s/locations/%s/publishers/google/models/%s", e.project, e.location, e.modelName)); err != nil {
		return "", fmt.Errorf("vertex: set model field: %w", err)
	}
	if err := reqMsg.TrySetField(reqMsg.FindFieldDescriptorByName("contents"), prompt); err != nil {
		return "", fmt.Errorf("vertex: set contents field: %w", err)
	}

	methodPath := "/" + e.method.GetService().GetFullyQualifiedName() + "/" + e.method.GetName()
	respMsg := dynamic.NewMessage(e.method.GetOutputType())
	if err := e.conn.Invoke(ctx, methodPath, reqMsg, respMsg); err != nil {
		return "", fmt.Errorf("vertex: RPC failed: %w", err)
	}

	text, err := respMsg.TryGetFieldByName("text")
	if err != nil {
		return "", fmt.Errorf("vertex: decode response: %w", err)
	}
	s, _ := text.(string)
	return s, nil
}

func renderEvents(ec *evalctx.Context) string {
	events := evalctx.VisibleEvents(ec)
	if len(events) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, v := range events {
		sb.WriteString(v.String())
		sb.WriteString("\n")
	}
	return sb.String()
}

func (e *Engine) Untyped(ctx context.Context, ec *evalctx.Context) (string, error) {
	return e.invoke(ctx, renderEvents(ec)+"Respond with a single string value.")
}

func (e *Engine) Typed(ctx context.Context, ec *evalctx.Context, want evalctx.TypeDescriptor) (value.Value, error) {
	text, err := e.invoke(ctx, renderEvents(ec)+"Respond with exactly one value of type "+want.Name+", and nothing else.")
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	switch want.Name {
	case "Boolean":
		return value.Boolean(strings.EqualFold(text, "true")), nil
	case "Unit":
		return value.Unit{}, nil
	default:
		return value.String(text), nil
	}
}

func (e *Engine) Select(ctx context.Context, ec *evalctx.Context, descriptions []string) (int, error) {
	if len(descriptions) == 0 {
		return 0, fmt.Errorf("vertex: select has no branches")
	}
	var sb strings.Builder
	sb.WriteString(renderEvents(ec))
	sb.WriteString("Choose one branch by number:\n")
	for i, d := range descriptions {
		fmt.Fprintf(&sb, "%d: %s\n", i, d)
	}
	text, err := e.invoke(ctx, sb.String())
	if err != nil {
		return 0, err
	}
	var idx int
	if _, err := fmt.Sscanf(strings.TrimSpace(text), "%d", &idx); err != nil || idx < 0 || idx >= len(descriptions) {
		return 0, nil
	}
	return idx, nil
}
