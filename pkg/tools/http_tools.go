package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/evaluator"
)

const httpClientKey = "http.client"

// HTTPPack performs HTTP requests.
func HTTPPack() *evaluator.Pack {
	return newPack("http", "HTTP client", []Def{
		{Name: "http.get", Execute: httpRequest("GET")},
		{Name: "http.post", Execute: httpRequest("POST")},
		{Name: "http.request", Execute: httpRequest("")},
	}, nil)
}

// SetHTTPClient overrides the client used by the http pack.
func SetHTTPClient(ip *evaluator.Interpreter, c *http.Client) {
	ip.SetState(httpClientKey, c)
}

func httpClient(ip *evaluator.Interpreter) *http.Client {
	if v, ok := ip.State(httpClientKey); ok {
		if c, ok := v.(*http.Client); ok {
			return c
		}
	}
	return http.DefaultClient
}

func httpRequest(method string) func(context.Context, *evaluator.Interpreter, evaluator.NJValue) (evaluator.NJValue, error) {
	return func(ctx context.Context, ip *evaluator.Interpreter, args evaluator.NJValue) (evaluator.NJValue, error) {
		instr := "http.request"
		if method != "" {
			instr = "http." + strings.ToLower(method)
		}
		rec, err := argRecord(instr, args, "url")
		if err != nil {
			return nil, err
		}
		urlStr, err := reqString(instr, rec, "url")
		if err != nil {
			return nil, err
		}
		m := method
		if m == "" {
			m = strings.ToUpper(optString(rec, "method", "GET"))
		}

		if strings.HasPrefix(urlStr, "data:") {
			return handleDataURL(instr, urlStr)
		}

		var body io.Reader
		if b, ok := rec.Get("body"); ok && !evaluator.IsNull(b) {
			if s, ok := b.(evaluator.NJString); ok {
				body = strings.NewReader(s.Value)
			} else {
				body = strings.NewReader(evaluator.ValueToJSONString(b))
			}
		}

		if t := optNumber(rec, "timeoutMs", 0); t > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, evaluator.ClampDuration(t*float64(time.Millisecond)))
			defer cancel()
		}

		req, err := http.NewRequestWithContext(ctx, m, urlStr, body)
		if err != nil {
			return nil, err
		}
		for k, v := range stringMap(rec, "headers") {
			req.Header.Set(k, v)
		}
		if body != nil && req.Header.Get("Content-Type") == "" {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := httpClient(ip).Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		keys := make([]string, 0, len(resp.Header))
		for k := range resp.Header {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		headers := evaluator.EmptyRecord()
		for _, k := range keys {
			headers.Set(strings.ToLower(k), evaluator.NewString(strings.Join(resp.Header[k], ", ")))
		}

		return record(
			kv("status", evaluator.NewNumber(float64(resp.StatusCode))),
			kv("headers", headers),
			kv("body", evaluator.NewString(string(data))),
		), nil
	}
}

// handleDataURL serves data:[mediatype],payload URLs without a network round trip.
func handleDataURL(instr, dataURL string) (evaluator.NJValue, error) {
	rest := dataURL[len("data:"):]
	commaIdx := strings.Index(rest, ",")
	if commaIdx < 0 {
		return nil, fmt.Errorf("%s: invalid data URL", instr)
	}

	body := rest[commaIdx+1:]
	decoded, err := url.PathUnescape(body)
	if err != nil {
		decoded = body
	}

	return record(
		kv("status", evaluator.NewNumber(200)),
		kv("headers", evaluator.EmptyRecord()),
		kv("body", evaluator.NewString(decoded)),
	), nil
}
