package vertex

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"github.com/stretchr/testify/require"

	"github.com/wigmorewelsh/structured-agent/internal/evalctx"
	"github.com/wigmorewelsh/structured-agent/internal/value"
)

const testProto = `
syntax = "proto3";
package google.cloud.aiplatform.v1;

service PredictionService {
  rpc GenerateContent (GenerateContentRequest) returns (GenerateContentResponse);
}

message GenerateContentRequest {
  string model = 1;
  string contents = 2;
}

message GenerateContentResponse {
  string text = 1;
}
`

func parseTestProto(t *testing.T) []*desc.FileDescriptor {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.proto"), []byte(testProto), 0o644))

	parser := protoparse.Parser{ImportPaths: []string{dir}}
	fds, err := parser.ParseFiles("test.proto")
	require.NoError(t, err)
	return fds
}

func TestFindMethod_ResolvesServiceAndMethod(t *testing.T) {
	fds := parseTestProto(t)

	md, err := findMethod(fds, "google.cloud.aiplatform.v1.PredictionService/GenerateContent")
	require.NoError(t, err)
	require.Equal(t, "GenerateContent", md.GetName())
	require.Equal(t, "GenerateContentRequest", md.GetInputType().GetName())
	require.Equal(t, "GenerateContentResponse", md.GetOutputType().GetName())
}

func TestFindMethod_UnknownMethodErrors(t *testing.T) {
	fds := parseTestProto(t)

	_, err := findMethod(fds, "google.cloud.aiplatform.v1.PredictionService/DoesNotExist")
	require.Error(t, err)
}

func TestFindMethod_MalformedPathErrors(t *testing.T) {
	fds := parseTestProto(t)

	_, err := findMethod(fds, "NoSlashHere")
	require.Error(t, err)
}

func TestRenderEvents_EmptyLogIsEmptyString(t *testing.T) {
	ec := evalctx.NewFrameRoot(nil, nil)
	require.Equal(t, "", renderEvents(ec))
}

func TestRenderEvents_JoinsVisibleEventsWithNewlines(t *testing.T) {
	ec := evalctx.NewFrameRoot(nil, nil)
	ec.Inject(nil, value.String("first"))
	ec.Inject(nil, value.Boolean(true))

	require.Equal(t, "first\ntrue\n", renderEvents(ec))
}

func TestEngine_Select_NoBranchesIsAnError(t *testing.T) {
	e := &Engine{}
	_, err := e.Select(context.Background(), evalctx.NewFrameRoot(nil, nil), nil)
	require.Error(t, err)
}
