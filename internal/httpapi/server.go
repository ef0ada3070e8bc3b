// Package httpapi is the HTTP face of the gate: live video, snapshots,
// status, credential and vehicle administration, and scan intake for
// readers that speak HTTP instead of MQTT.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/BrandonDHaskell/Parkgate/server/internal/auth"
	"github.com/BrandonDHaskell/Parkgate/server/internal/camera"
	"github.com/BrandonDHaskell/Parkgate/server/internal/imagestore"
	"github.com/BrandonDHaskell/Parkgate/server/internal/logging"
	"github.com/BrandonDHaskell/Parkgate/server/internal/parkgate/service"
)

const DefaultRequestTimeout = 5 * time.Second

// Camera is what the facade needs from the camera manager.
type Camera interface {
	GetFrame(ctx context.Context, extractPlate, cropToVehicle bool) (camera.Frame, error)
	Stream(ctx context.Context, emit func(jpeg []byte) error) error
	IsOpen() bool
	Index() int
	AutoSave() bool
	SetAutoSave(on bool)
}

// TransportStatus reports event transport connectivity for /status.
type TransportStatus interface {
	Connected() bool
	Broker() string
}

type Dependencies struct {
	Logger         logging.Logger
	Addr           string
	Access         *service.AccessService
	Readers        *service.ReaderRegistry
	Workflow       *service.Workflow
	Camera         Camera
	Images         imagestore.Store // nil keeps snapshots unsaved
	Transport      TransportStatus  // nil reports disconnected
	Hub            *Hub             // nil disables /ws/events
	JWTSecret      []byte           // empty leaves admin endpoints open
	RequestTimeout time.Duration
}

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	logger     logging.Logger

	access    *service.AccessService
	readers   *service.ReaderRegistry
	workflow  *service.Workflow
	camera    Camera
	images    imagestore.Store
	transport TransportStatus
	hub       *Hub
	timeout   time.Duration
}

func NewServer(d Dependencies) *Server {
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
	if d.Images == nil {
		d.Images = imagestore.Nop{}
	}
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = DefaultRequestTimeout
	}

	s := &Server{
		logger:    d.Logger.With("component", "http"),
		access:    d.Access,
		readers:   d.Readers,
		workflow:  d.Workflow,
		camera:    d.Camera,
		images:    d.Images,
		transport: d.Transport,
		hub:       d.Hub,
		timeout:   d.RequestTimeout,
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger))

	r.GET("/video_feed", s.handleVideoFeed)
	r.GET("/snapshot", s.handleSnapshot)
	r.GET("/status", s.handleStatus)
	r.POST("/camera/auto_save", s.handleAutoSave)

	r.GET("/credentials", s.handleListCredentials)
	r.GET("/access_logs", s.handleAccessLogs)

	r.GET("/vehicles/inside", s.handleVehiclesInside)
	r.GET("/vehicles/history", s.handleHistory)
	r.GET("/vehicles/history/:uid", s.handleHistory)
	r.GET("/vehicles/mismatches", s.handleMismatches)

	r.GET("/license_plates", s.handleListPlates)
	r.POST("/license_plates", s.handleSavePlate)

	r.POST("/v1/scan", s.handleScan)

	if s.hub != nil {
		r.GET("/ws/events", s.hub.handleUpgrade)
	}

	admin := r.Group("/", auth.RequireBearer(d.JWTSecret))
	admin.POST("/credentials", s.handleAddCredential)
	admin.DELETE("/credentials/:uid", s.handleRemoveCredential)
	admin.POST("/credentials/test", s.handleTestCredential)
	admin.POST("/vehicles/force_exit", s.handleForceExit)
	admin.POST("/vehicles/manual_entry", s.handleManualEntry)

	s.engine = r
	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.hub != nil {
		s.hub.Close()
	}
	return s.httpServer.Shutdown(ctx)
}
