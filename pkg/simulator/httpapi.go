package simulator

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// deviceInfo is the identity document both HTTP surfaces serve.
type deviceInfo struct {
	Name  string `json:"name"`
	Ver   string `json:"ver"`
	MAC   string `json:"mac"`
	Brand string `json:"brand"`
	LEDs  struct {
		Count int `json:"count"`
	} `json:"leds"`
}

func (c *Controller) info() deviceInfo {
	info := deviceInfo{
		Name:  c.cfg.Name,
		Ver:   c.cfg.Firmware,
		MAC:   c.cfg.MAC,
		Brand: "Lumina",
	}
	info.LEDs.Count = c.cfg.LEDCount
	return info
}

// apRouter serves the soft-AP configuration surface: the settings form, the
// saved-config read-back, the state endpoint, and the identity document.
func (c *Controller) apRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/json/info", c.handleInfo)
	r.Get("/json/cfg", c.handleConfig)
	r.Post("/settings/wifi", c.handleSettings)
	r.Post("/json/state", c.handleState)
	return r
}

// stationRouter serves the post-join surface. Only the identity document is
// needed for verification.
func (c *Controller) stationRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/json/info", c.handleInfo)
	return r
}

func (c *Controller) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, c.info())
}

// handleSettings accepts the Wi-Fi settings form. The firmware answers 200
// even when it mangles or drops the value; clients find out on read-back.
func (c *Controller) handleSettings(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	ssid := r.PostFormValue("CS")
	secret := r.PostFormValue("PW")
	if ssid == "" {
		http.Error(w, "missing CS", http.StatusBadRequest)
		return
	}

	c.acceptCredentials(ssid, secret)
	w.WriteHeader(http.StatusOK)
}

// handleConfig serves the saved network configuration for read-back.
func (c *Controller) handleConfig(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	saved := c.savedSSID
	c.mu.Unlock()

	var cfg struct {
		Network struct {
			Instances []struct {
				SSID string `json:"ssid"`
			} `json:"ins"`
		} `json:"nw"`
	}
	if saved != "" {
		cfg.Network.Instances = append(cfg.Network.Instances, struct {
			SSID string `json:"ssid"`
		}{SSID: saved})
	}
	writeJSON(w, cfg)
}

// handleState applies a state post. Only the reboot flag matters here.
func (c *Controller) handleState(w http.ResponseWriter, r *http.Request) {
	var state struct {
		Reboot bool `json:"rb"`
	}
	if err := json.NewDecoder(r.Body).Decode(&state); err != nil {
		http.Error(w, "bad state", http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusOK)

	if state.Reboot {
		c.logger.Debug("reboot requested over HTTP")
		// Let the response flush before the surface goes away.
		go c.reboot()
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
