package httpapi_test

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/BrandonDHaskell/Parkgate/server/internal/auth"
	"github.com/BrandonDHaskell/Parkgate/server/internal/parkgate/types"
)

// ── Credentials ──────────────────────────────────────────────────────────────

func TestCredentials_Lifecycle(t *testing.T) {
	f := newFixture(t, nil)
	url := f.ts.URL + "/credentials"

	resp := do(t, "POST", url, `{"uid":"A1B2C3D4","name":"Ann"}`)
	expectStatus(t, resp, http.StatusCreated)
	var cred types.Credential
	decodeJSON(t, resp, &cred)
	if cred.Department != "Unknown" || cred.Status != types.CredentialActive {
		t.Errorf("unexpected credential %+v", cred)
	}

	expectErrorCode(t, do(t, "POST", url, `{"uid":"A1B2C3D4","name":"Bob"}`), http.StatusConflict, "credential_exists")
	expectErrorCode(t, do(t, "POST", url, `{"uid":"X"}`), http.StatusBadRequest, "bad_json")

	resp = do(t, "GET", url, "")
	expectStatus(t, resp, http.StatusOK)
	var list []types.Credential
	decodeJSON(t, resp, &list)
	if len(list) != 1 {
		t.Fatalf("expected 1 credential, got %d", len(list))
	}

	resp = do(t, "POST", url+"/test", `{"uid":"A1B2C3D4"}`)
	expectStatus(t, resp, http.StatusOK)
	var check types.CheckResult
	decodeJSON(t, resp, &check)
	if !check.Allowed {
		t.Errorf("expected allowed, got %+v", check)
	}

	expectStatus(t, do(t, "DELETE", url+"/A1B2C3D4", ""), http.StatusOK)
	expectErrorCode(t, do(t, "DELETE", url+"/NOPE", ""), http.StatusNotFound, "credential_not_found")

	resp = do(t, "POST", url+"/test", `{"uid":"A1B2C3D4"}`)
	expectStatus(t, resp, http.StatusOK)
	decodeJSON(t, resp, &check)
	if check.Allowed {
		t.Error("revoked credential must be denied")
	}

	resp = do(t, "GET", f.ts.URL+"/access_logs?uid=A1B2C3D4", "")
	expectStatus(t, resp, http.StatusOK)
	var logs []types.AccessLogEntry
	decodeJSON(t, resp, &logs)
	if len(logs) != 2 || logs[0].Allowed || logs[0].Context["source"] != "admin_test" {
		t.Errorf("unexpected access logs %+v", logs)
	}
}

func TestAdminEndpoints_RequireBearerWhenSecretSet(t *testing.T) {
	secret := []byte("s3cret")
	f := newFixture(t, secret)

	expectErrorCode(t, do(t, "POST", f.ts.URL+"/credentials", `{"uid":"U1","name":"Ann"}`),
		http.StatusUnauthorized, "unauthorized")
	expectErrorCode(t, do(t, "POST", f.ts.URL+"/vehicles/force_exit", `{"uid":"U1"}`),
		http.StatusUnauthorized, "unauthorized")

	tok, err := auth.GenerateToken("guard-1", secret, time.Hour)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	expectStatus(t, do(t, "POST", f.ts.URL+"/credentials", `{"uid":"U1","name":"Ann"}`,
		"Authorization", "Bearer "+tok), http.StatusCreated)

	// Reads stay open.
	expectStatus(t, do(t, "GET", f.ts.URL+"/credentials", ""), http.StatusOK)
}

// ── Vehicles ─────────────────────────────────────────────────────────────────

func TestVehicles_ManualEntryAndForceExit(t *testing.T) {
	f := newFixture(t, nil)

	resp := do(t, "POST", f.ts.URL+"/vehicles/manual_entry", `{"license_plate":"51F-00001"}`)
	expectStatus(t, resp, http.StatusCreated)

	expectErrorCode(t, do(t, "POST", f.ts.URL+"/vehicles/force_exit", `{"uid":"GHOST","reason":"x"}`),
		http.StatusNotFound, "no_entry_record")

	f.seed(t, "A1B2C3D4")
	expectStatus(t, do(t, "POST", f.ts.URL+"/v1/scan?direction=entry", `{"uid":"A1B2C3D4","device_id":"G1"}`), http.StatusOK)

	resp = do(t, "GET", f.ts.URL+"/vehicles/inside", "")
	expectStatus(t, resp, http.StatusOK)
	var inside struct {
		Count    int                    `json:"count"`
		Vehicles []types.TrackingRecord `json:"vehicles"`
	}
	decodeJSON(t, resp, &inside)
	if inside.Count != 1 || inside.Vehicles[0].UID != "A1B2C3D4" {
		t.Fatalf("unexpected inside %+v", inside)
	}

	resp = do(t, "POST", f.ts.URL+"/vehicles/force_exit", `{"uid":"A1B2C3D4","reason":"barrier fault"}`)
	expectStatus(t, resp, http.StatusOK)
	var exit types.ExitResult
	decodeJSON(t, resp, &exit)
	if !exit.Success || exit.ExitPlate != types.ForceExitPlate {
		t.Errorf("unexpected force exit %+v", exit)
	}

	resp = do(t, "GET", f.ts.URL+"/vehicles/history/A1B2C3D4", "")
	expectStatus(t, resp, http.StatusOK)
	var hist []types.TrackingRecord
	decodeJSON(t, resp, &hist)
	if len(hist) != 1 || hist[0].Status != types.StatusForceExit || hist[0].AdminReason != "barrier fault" {
		t.Errorf("unexpected history %+v", hist)
	}

	resp = do(t, "GET", f.ts.URL+"/vehicles/history?limit=10", "")
	expectStatus(t, resp, http.StatusOK)
	decodeJSON(t, resp, &hist)
	if len(hist) != 2 {
		t.Errorf("expected manual + force-exited sessions, got %d", len(hist))
	}

	expectErrorCode(t, do(t, "GET", f.ts.URL+"/vehicles/history?limit=-1", ""), http.StatusBadRequest, "invalid_limit")
}

// ── Scan intake ──────────────────────────────────────────────────────────────

func TestScan_JSONEntryExitMismatch(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t, "A1B2C3D4")

	resp := do(t, "POST", f.ts.URL+"/v1/scan", `{"uid":"A1B2C3D4"}`)
	expectStatus(t, resp, http.StatusOK)
	var in types.ScanResult
	decodeJSON(t, resp, &in)
	if !in.Success || in.Direction != types.DirectionEntry || in.LicensePlate != "30A-12345" {
		t.Fatalf("unexpected entry %+v", in)
	}

	f.detector.set("99B-99999")
	resp = do(t, "POST", f.ts.URL+"/v1/scan?direction=exit", `{"uid":"A1B2C3D4"}`)
	expectStatus(t, resp, http.StatusOK)
	var out types.ScanResult
	decodeJSON(t, resp, &out)
	if !out.Success || out.MatchStatus != types.MatchMismatch {
		t.Fatalf("unexpected exit %+v", out)
	}

	resp = do(t, "GET", f.ts.URL+"/vehicles/mismatches", "")
	expectStatus(t, resp, http.StatusOK)
	var mm []types.TrackingRecord
	decodeJSON(t, resp, &mm)
	if len(mm) != 1 {
		t.Errorf("expected 1 mismatch, got %d", len(mm))
	}
}

func TestScan_Rejections(t *testing.T) {
	f := newFixture(t, nil)

	expectErrorCode(t, do(t, "POST", f.ts.URL+"/v1/scan?direction=sideways", `{"uid":"A"}`),
		http.StatusBadRequest, "invalid_direction")
	expectErrorCode(t, do(t, "POST", f.ts.URL+"/v1/scan", `{"uid":"  "}`),
		http.StatusBadRequest, "invalid_uid")
	expectErrorCode(t, do(t, "POST", f.ts.URL+"/v1/scan", `not json`),
		http.StatusBadRequest, "bad_json")

	resp := do(t, "POST", f.ts.URL+"/v1/scan", `{"uid":"UNKNOWN1"}`)
	expectStatus(t, resp, http.StatusOK)
	var res types.ScanResult
	decodeJSON(t, resp, &res)
	if res.Allowed || res.State != types.StateRejected {
		t.Errorf("unknown uid must be rejected, got %+v", res)
	}
}

func TestScan_Protobuf(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t, "A1B2C3D4")

	st, err := structpb.NewStruct(map[string]any{"uid": "A1B2C3D4", "device_id": "GATE-PB"})
	if err != nil {
		t.Fatal(err)
	}
	body, err := proto.Marshal(st)
	if err != nil {
		t.Fatal(err)
	}

	resp, err := http.Post(f.ts.URL+"/v1/scan?direction=entry", "application/x-protobuf", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)
	if ct := resp.Header.Get("Content-Type"); ct != "application/x-protobuf" {
		t.Fatalf("expected protobuf response, got %q", ct)
	}

	raw, _ := io.ReadAll(resp.Body)
	var out structpb.Struct
	if err := proto.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	fields := out.GetFields()
	if !fields["success"].GetBoolValue() || fields["device_id"].GetStringValue() != "GATE-PB" {
		t.Errorf("unexpected protobuf result %v", fields)
	}
}

// ── Live events ──────────────────────────────────────────────────────────────

func TestWebsocket_ReceivesScanResults(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t, "A1B2C3D4")

	wsURL := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/ws/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(time.Second)
	for f.hub.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("hub never registered the client")
		}
		time.Sleep(5 * time.Millisecond)
	}

	expectStatus(t, do(t, "POST", f.ts.URL+"/v1/scan", `{"uid":"A1B2C3D4"}`), http.StatusOK)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev types.ScanResult
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read: %v", err)
	}
	if ev.UID != "A1B2C3D4" || !ev.Success {
		t.Errorf("unexpected event %+v", ev)
	}
}
