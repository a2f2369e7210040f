package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"romaneio-service/internal/config"
	"romaneio-service/internal/models"
	"romaneio-service/internal/scanner"
	"romaneio-service/internal/search"
	"romaneio-service/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 54 * time.Second

	// Pulso de vibración sugerido a la vista tras una lectura resuelta
	vibrateMs = 100
)

// wsMessage mensaje de la vista
type wsMessage struct {
	Type   string `json:"type"`
	Key    string `json:"key,omitempty"`
	Target string `json:"target,omitempty"`
	At     int64  `json:"at,omitempty"` // ms unix del keydown en el cliente
	Query  string `json:"query,omitempty"`
	Code   string `json:"code,omitempty"`
}

// wsEvent evento empujado a la vista
type wsEvent struct {
	Type      string      `json:"type"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// StationWSHandler canal en tiempo real de una estación: teclas del lector,
// búsqueda mientras se escribe y eventos del carrito
type StationWSHandler struct {
	baseHandler
	stationService services.StationService
	catalogService services.CatalogService
	scannerCfg     config.ScannerConfig
	searchCfg      config.SearchConfig
	upgrader       websocket.Upgrader
}

func NewStationWSHandler(
	stationService services.StationService,
	catalogService services.CatalogService,
	scannerCfg config.ScannerConfig,
	searchCfg config.SearchConfig,
	logger *zap.Logger,
) *StationWSHandler {
	return &StationWSHandler{
		baseHandler:    newBaseHandler(logger),
		stationService: stationService,
		catalogService: catalogService,
		scannerCfg:     scannerCfg,
		searchCfg:      searchCfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Las estaciones se sirven desde otro origen
			},
		},
	}
}

// stationConn estado de una conexión: filtro de lectura y búsquedas propias
type stationConn struct {
	h       *StationWSHandler
	conn    *websocket.Conn
	station string
	send    chan wsEvent
	done    chan struct{}
	once    sync.Once
	logger  *zap.Logger

	filter   *scanner.Filter
	products *search.Debouncer[models.Product]
	clients  *search.Debouncer[models.Client]
}

// Serve atiende GET /ws; el contexto del request ya trae el token de la estación
func (h *StationWSHandler) Serve(c *gin.Context) {
	station := stationParam(c)
	logger := h.logger.With(zap.String("handler", "station_ws"), zap.String("station", station))

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error("Error actualizando a WebSocket", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	sc := &stationConn{
		h:       h,
		conn:    conn,
		station: station,
		send:    make(chan wsEvent, 64),
		done:    make(chan struct{}),
		logger:  logger,
		filter: scanner.NewFilter(
			scanner.WithMaxKeyGap(h.scannerCfg.MaxKeyGap),
			scanner.WithMinLength(h.scannerCfg.MinLength),
		),
	}
	sc.products = search.New[models.Product](ctx, h.searchCfg.ProductDebounce, h.searchCfg.MinQueryLength,
		h.catalogService.SearchProducts, sc.deliverProducts)
	sc.clients = search.New[models.Client](ctx, h.searchCfg.ClientDebounce, h.searchCfg.MinQueryLength,
		h.catalogService.SearchClients, sc.deliverClients)

	defer func() {
		sc.products.Close()
		sc.clients.Close()
		cancel()
		sc.stop()
		logger.Info("Conexión WebSocket cerrada")
	}()

	go sc.writePump()

	logger.Info("Conexión WebSocket establecida")
	sc.push("connected", "", h.stationService.Cart(station))

	sc.readPump(ctx)
}

// stop marca la conexión como cerrada; lo llaman el lector y el escritor
func (sc *stationConn) stop() {
	sc.once.Do(func() { close(sc.done) })
}

// push encola un evento; si la conexión ya cerró se descarta
func (sc *stationConn) push(kind, message string, data interface{}) {
	ev := wsEvent{Type: kind, Message: message, Data: data, Timestamp: time.Now()}
	select {
	case sc.send <- ev:
	case <-sc.done:
	}
}

func (sc *stationConn) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		sc.stop()
		sc.conn.Close()
	}()

	for {
		select {
		case ev := <-sc.send:
			sc.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := sc.conn.WriteJSON(ev); err != nil {
				sc.logger.Warn("Error enviando evento", zap.String("type", ev.Type), zap.Error(err))
				return
			}
		case <-ticker.C:
			sc.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := sc.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-sc.done:
			sc.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			_ = sc.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

func (sc *stationConn) readPump(ctx context.Context) {
	sc.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	sc.conn.SetPongHandler(func(string) error {
		sc.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		var msg wsMessage
		if err := sc.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				sc.logger.Warn("Cierre inesperado del WebSocket", zap.Error(err))
			}
			return
		}
		sc.conn.SetReadDeadline(time.Now().Add(wsPongWait))

		switch msg.Type {
		case "key":
			sc.handleKey(ctx, msg)
		case "scan":
			sc.handleScan(ctx, msg.Code)
		case "search":
			sc.products.Submit(msg.Query)
		case "client_search":
			sc.clients.Submit(msg.Query)
		case "cart":
			sc.push("cart", "", sc.h.stationService.Cart(sc.station))
		case "ping":
			sc.push("pong", "", nil)
		default:
			sc.push("error", "tipo de mensaje desconocido: "+msg.Type, nil)
		}
	}
}

func (sc *stationConn) handleKey(ctx context.Context, msg wsMessage) {
	ev := scanner.KeyEvent{Key: msg.Key, Target: msg.Target}
	if msg.At > 0 {
		ev.At = time.UnixMilli(msg.At)
	}

	code, ok := sc.filter.Feed(ev)
	if !ok {
		return
	}
	sc.logger.Debug("🔍 [DEBUG] Ráfaga del lector detectada", zap.String("code", code))
	sc.push("scan", "", gin.H{"code": code})
	sc.handleScan(ctx, code)
}

// handleScan resuelve el código y empuja el resultado. La resolución corre
// en el loop de lectura: las lecturas de una estación se aplican en orden.
func (sc *stationConn) handleScan(ctx context.Context, code string) {
	res, cart, err := sc.h.stationService.Scan(ctx, sc.station, code)
	if err != nil {
		sc.push("error", err.Error(), gin.H{"code": code})
		return
	}

	data := gin.H{"resolution": toResolveResponse(res), "cart": cart}
	switch res.Outcome {
	case services.OutcomeResolved:
		data["vibrate"] = vibrateMs
		sc.push("resolved", resolutionMessage(res), data)
	case services.OutcomeAmbiguous:
		sc.push("ambiguous", resolutionMessage(res), data)
	default:
		sc.push("not_found", resolutionMessage(res), data)
	}
}

func (sc *stationConn) deliverProducts(r search.Result[models.Product]) {
	if r.Err != nil {
		sc.push("error", "erro na busca de produtos", gin.H{"seq": r.Seq, "query": r.Query})
		return
	}
	sc.push("search_results", "", gin.H{"seq": r.Seq, "query": r.Query, "items": r.Items})
}

func (sc *stationConn) deliverClients(r search.Result[models.Client]) {
	if r.Err != nil {
		sc.push("error", "erro na busca de clientes", gin.H{"seq": r.Seq, "query": r.Query})
		return
	}
	sc.push("client_results", "", gin.H{"seq": r.Seq, "query": r.Query, "items": r.Items})
}
