package pipeline

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/JaimeStill/docket/internal/classify"
	"github.com/JaimeStill/docket/internal/dispatch"
	"github.com/JaimeStill/docket/internal/naming"
	"github.com/JaimeStill/docket/internal/records"
	"github.com/JaimeStill/docket/pkg/storage"
)

// remoteAttributes are the response metadata keys adopted into the record.
var remoteAttributes = []string{records.AttrClientCode, records.AttrDocumentType, records.AttrAmount}

// dispatch offers the staged artifact to the remote worker and adopts its
// route and filename when it answers. Any other result keeps route as is.
func (o *Orchestrator) dispatch(
	ctx context.Context,
	r *run,
	route *routing,
	staged string,
	meta classify.Metadata,
	now time.Time,
) {
	res := o.rt.Dispatcher.Dispatch(ctx, staged, dispatch.Request{
		Fingerprint:      r.out.Fingerprint.String(),
		RouteTag:         route.tag,
		PriorityTier:     route.tier,
		Confidence:       r.out.Confidence,
		OriginalFilename: r.item.Name(),
		DocumentType:     meta.DocumentType,
		Amount:           meta.Amount,
	})
	if res.Status != dispatch.StatusOK {
		r.logger.Info("using local classification",
			"dispatch_status", res.Status,
			"attempts", res.Attempts,
			"error", res.Err,
		)
		return
	}

	resp := res.Response
	r.out.Source = records.SourceRemote

	if resp.Route != route.tag {
		if o.rt.Classifier.Known(resp.Route) {
			r.logger.Info("remote worker rerouted item", "from", route.tag, "to", resp.Route)
			route.tag = resp.Route
			o.localNames(route, r.out.Fingerprint, r.item.Ext(), now)
		} else {
			r.logger.Warn("ignoring unknown remote route", "route", resp.Route)
		}
	}

	for _, key := range remoteAttributes {
		v := metadataString(resp.Metadata[key])
		if v == "" {
			continue
		}
		if key == records.AttrAmount {
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				continue
			}
		}
		r.out.Attributes[key] = truncate(v, records.MaxAttributeValue)
	}

	name, err := o.remoteName(r, *route, resp, now)
	if err != nil {
		r.logger.Warn("ignoring remote filename", "error", err)
		return
	}
	if name != "" {
		route.name = name
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		route.full = naming.WithExt(stem+"__"+r.out.Fingerprint.String(), r.item.Ext())
	}
}

// remoteName returns the filename proposed by resp: final_filename first,
// then the naming_convention template. It returns "" when neither is set.
func (o *Orchestrator) remoteName(r *run, route routing, resp *dispatch.Response, now time.Time) (string, error) {
	ext := r.item.Ext()

	if resp.FinalFilename != "" {
		return naming.Filename(naming.WithExt(naming.Sanitize(resp.FinalFilename), ext))
	}
	if resp.NamingConvention == "" {
		return "", nil
	}

	values := map[string]string{
		"date":          now.Format(naming.DateLayout),
		"route":         route.tag,
		"route_tag":     route.tag,
		"priority":      route.tier,
		"priority_tier": route.tier,
		"fingerprint":   r.out.Fingerprint.Prefix(o.rt.Intake.FingerprintPrefix),
		"original":      strings.TrimSuffix(r.item.Name(), filepath.Ext(r.item.Name())),
	}
	for k, v := range r.out.Attributes {
		values[k] = v
	}
	for k, v := range resp.Metadata {
		if s := metadataString(v); s != "" {
			values[k] = s
		}
	}
	return naming.Template(resp.NamingConvention, values, ext)
}

func metadataString(v any) string {
	switch v := v.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// archive mirrors the filed artifact into blob storage. Failures are logged;
// the local file and its record remain authoritative.
func (o *Orchestrator) archive(ctx context.Context, r *run, target string) {
	if o.rt.Archive == nil {
		return
	}

	f, err := os.Open(target)
	if err != nil {
		r.logger.Warn("archive open failed", "error", err)
		return
	}
	defer f.Close()

	key := storage.Key(o.rt.ArchivePrefix, o.rt.Intake.RouteDir(r.out.RouteTag), filepath.Base(target))
	contentType := mime.TypeByExtension(filepath.Ext(target))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if err := o.rt.Archive.Put(ctx, key, f, contentType); err != nil {
		r.logger.Warn("archive mirror failed", "key", key, "error", err)
		return
	}
	r.logger.Debug("archived artifact", "key", key, "provider", o.rt.Archive.Provider())
}
