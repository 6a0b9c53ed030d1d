// Package lambdafn adapts the pipeline stages and search services to AWS
// Lambda handler signatures.
package lambdafn

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"

	"github.com/kozaktomas/snaprace/internal/config"
)

// Function names accepted by the lambda command.
const (
	FuncStarter        = "starter"
	FuncDetectText     = "detect-text"
	FuncIndexFaces     = "index-faces"
	FuncDBUpdate       = "db-update"
	FuncSearchByBib    = "search-by-bib"
	FuncSearchBySelfie = "search-by-selfie"
)

// Names returns every function name in deployment order.
func Names() []string {
	return []string{FuncStarter, FuncDetectText, FuncIndexFaces, FuncDBUpdate, FuncSearchByBib, FuncSearchBySelfie}
}

// Required lists the environment variables each function refuses to run without.
var Required = map[string][]string{
	FuncStarter:        {config.EnvStateMachineARN, config.EnvPhotosTable, config.EnvRegion, config.EnvStage},
	FuncDetectText:     {config.EnvPhotosTable, config.EnvBibIndexTable, config.EnvRegion, config.EnvStage},
	FuncIndexFaces:     {config.EnvPhotosTable, config.EnvCollectionPrefix, config.EnvRegion, config.EnvStage},
	FuncDBUpdate:       {config.EnvPhotosTable, config.EnvRegion, config.EnvStage},
	FuncSearchByBib:    {config.EnvBibIndexTable, config.EnvRegion, config.EnvStage},
	FuncSearchBySelfie: {config.EnvCollectionPrefix, config.EnvRegion, config.EnvStage},
}

const msgConfigError = "Internal server configuration error"

var defaultHeaders = map[string]string{
	"Content-Type":                "application/json",
	"Access-Control-Allow-Origin": "*",
}

func apiResponse(status int, body any) events.APIGatewayProxyResponse {
	data, err := json.Marshal(body)
	if err != nil {
		status = 500
		data = []byte(`{"error":"Internal server error"}`)
	}
	headers := make(map[string]string, len(defaultHeaders))
	for k, v := range defaultHeaders {
		headers[k] = v
	}
	return events.APIGatewayProxyResponse{StatusCode: status, Headers: headers, Body: string(data)}
}

func apiError(status int, message string) events.APIGatewayProxyResponse {
	return apiResponse(status, map[string]string{"error": message})
}

// withRequestID tags the logger with the invocation's request id when present.
func withRequestID(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		return logger.With("requestId", lc.AwsRequestID)
	}
	return logger
}
