package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/gorilla/websocket"

	"CreatorCanvas/internal/assets"
	"CreatorCanvas/internal/canvas"
	"CreatorCanvas/internal/export"
	hostnet "CreatorCanvas/internal/net"
	"CreatorCanvas/internal/session"
)

const (
	Port       = 8787
	ProjectDir = "projects"
	AssetDir   = "assets"
)

// ClientMessage is one mutation request from an editing client.
type ClientMessage struct {
	Type    string          `json:"type"` // create, update, move, resize, rotate, delete, copy, undo, redo
	ID      string          `json:"id,omitempty"`
	Element json.RawMessage `json:"element,omitempty"`
	Patch   *canvas.Patch   `json:"patch,omitempty"`
	X       float64         `json:"x,omitempty"`
	Y       float64         `json:"y,omitempty"`
	Width   float64         `json:"width,omitempty"`
	Height  float64         `json:"height,omitempty"`
	Degrees float64         `json:"degrees,omitempty"`
}

// Host owns one live editing session and its collaborators.
type Host struct {
	session  *session.Session
	store    *session.Store
	exporter *export.Exporter
	hub      *hostnet.Hub
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "discover" {
		runDiscover()
		return
	}

	log.Println("Starting CreatorCanvas host")

	store, err := session.NewStore(ProjectDir)
	if err != nil {
		log.Fatalf("Failed to open project store: %v", err)
	}

	h := &Host{
		session:  session.New(0),
		store:    store,
		exporter: export.New(assets.NewDirCatalog(AssetDir)),
		hub:      hostnet.NewHub(),
	}
	h.session.OnAction = func(a canvas.Action) {
		data, err := json.Marshal(struct {
			Type   string        `json:"type"`
			Action canvas.Action `json:"action"`
		}{"action", a})
		if err != nil {
			log.Printf("[HOST] Error encoding action: %v", err)
			return
		}
		h.hub.Broadcast(data, nil)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.handleWS)
	mux.HandleFunc("/export", h.handleExport)
	mux.HandleFunc("/export/pdf", h.handleExportPDF)
	mux.HandleFunc("/validate", h.handleValidate)
	mux.HandleFunc("/metadata", h.handleMetadata)
	mux.HandleFunc("/projects", h.handleProjects)
	mux.HandleFunc("/projects/load", h.handleProjectLoad)
	mux.HandleFunc("/peers", h.handlePeers)

	if server, err := hostnet.Advertise(Port); err != nil {
		log.Printf("[HOST] LAN advertisement unavailable: %v", err)
	} else {
		defer server.Shutdown()
	}

	log.Printf("[HOST] Serving on %s:%d", hostnet.OutgoingIP(), Port)
	if err := http.ListenAndServe(fmt.Sprintf(":%d", Port), mux); err != nil {
		log.Fatalf("Host server failed: %v", err)
	}
}

// runDiscover browses the LAN for canvas hosts and prints their
// websocket endpoints.
func runDiscover() {
	log.Println("Looking for canvas hosts on the LAN...")
	found := 0
	if err := hostnet.Browse(func(addr string) {
		found++
		fmt.Printf("ws://%s/ws\n", addr)
	}); err != nil {
		log.Fatalf("Discovery failed: %v", err)
	}
	if found == 0 {
		log.Println("No hosts found")
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true }, // LAN tool, same trust model as the editor pages
}

func (h *Host) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[HOST] Upgrade failed: %v", err)
		return
	}
	h.hub.Add(conn)
	defer h.hub.Remove(conn)

	if err := h.hub.Send(conn, h.snapshotMessage()); err != nil {
		log.Printf("[HOST] Error sending snapshot: %v", err)
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("[HOST] Bad message from %s: %v", conn.RemoteAddr(), err)
			continue
		}
		h.apply(msg)
	}
}

// apply dispatches one client mutation onto the session. Unknown ids
// and empty undo/redo are no-ops, mirroring the history semantics.
func (h *Host) apply(msg ClientMessage) {
	switch msg.Type {
	case "create":
		el, err := canvas.UnmarshalElement(msg.Element)
		if err != nil {
			log.Printf("[HOST] Bad element in create: %v", err)
			return
		}
		h.session.CreateElement(el)
	case "update":
		if msg.Patch != nil {
			h.session.UpdateElement(msg.ID, *msg.Patch)
		}
	case "move":
		h.session.MoveElement(msg.ID, msg.X, msg.Y)
	case "resize":
		h.session.ResizeElement(msg.ID, msg.Width, msg.Height)
	case "rotate":
		h.session.RotateElement(msg.ID, msg.Degrees)
	case "delete":
		h.session.DeleteElement(msg.ID)
	case "copy":
		h.session.CopyElement(msg.ID)
	case "undo":
		if h.session.Undo() {
			h.hub.Broadcast(h.snapshotMessage(), nil)
		}
	case "redo":
		if h.session.Redo() {
			h.hub.Broadcast(h.snapshotMessage(), nil)
		}
	default:
		log.Printf("[HOST] Unknown message type %q", msg.Type)
	}
}

func (h *Host) snapshotMessage() []byte {
	data, err := json.Marshal(struct {
		Type     string           `json:"type"`
		Elements []canvas.Element `json:"elements"`
	}{"snapshot", h.session.Elements()})
	if err != nil {
		log.Printf("[HOST] Error encoding snapshot: %v", err)
		return []byte(`{"type":"snapshot","elements":[]}`)
	}
	return data
}

func (h *Host) handleExport(w http.ResponseWriter, r *http.Request) {
	opts := export.Options{Format: export.FormatPNG}
	if r.URL.Query().Get("format") == "jpeg" {
		opts.Format = export.FormatJPEG
	}
	if v, err := strconv.ParseFloat(r.URL.Query().Get("scale"), 64); err == nil {
		opts.Scale = v
	}
	if v, err := strconv.ParseFloat(r.URL.Query().Get("quality"), 64); err == nil {
		opts.Quality = v
	}
	opts.OnProgress = func(p export.Progress) {
		log.Printf("[EXPORT] %s %d%% %s", p.Stage, p.Percent, p.Message)
	}

	img, err := h.exporter.Export(r.Context(), h.session.Elements(), opts)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "image/"+string(opts.Format))
	w.Write(img)
}

func (h *Host) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/pdf")
	if err := h.exporter.ProofSheet(r.Context(), w, h.session.Elements(), canvas.DefaultBounds); err != nil {
		log.Printf("[EXPORT] Proof sheet failed: %v", err)
	}
}

func (h *Host) handlePeers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, struct {
		Clients int `json:"clients"`
	}{h.hub.Count()})
}

func (h *Host) handleValidate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, canvas.Validate(h.session.Elements(), r.URL.Query().Get("kit")))
}

func (h *Host) handleMetadata(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, canvas.SubmissionMetadata(h.session.Elements(), r.URL.Query().Get("kit")))
}

func (h *Host) handleProjects(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		infos, err := h.store.List()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, infos)
	case http.MethodPost:
		name := r.URL.Query().Get("name")
		if name == "" {
			http.Error(w, "missing name", http.StatusBadRequest)
			return
		}
		if err := h.store.Save(name, h.session.Elements()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		log.Printf("[HOST] Saved project %q", name)
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Host) handleProjectLoad(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	elements, err := h.store.Load(r.URL.Query().Get("name"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	h.session.Reset(elements)
	h.hub.Broadcast(h.snapshotMessage(), nil)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[HOST] Error encoding response: %v", err)
	}
}
