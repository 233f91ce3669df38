package settings

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestDefaultsShape(t *testing.T) {
	defaults := Defaults()

	if !defaults.Settings.AUDBudget.Equal(decimal.NewFromInt(500000)) {
		t.Fatalf("默认预算应为 500000, 实际 %s", defaults.Settings.AUDBudget.String())
	}
	if defaults.Settings.TransferFeePercent != 1.5 {
		t.Fatalf("默认手续费应为 1.5, 实际 %f", defaults.Settings.TransferFeePercent)
	}
	if len(defaults.Alerts) != 3 {
		t.Fatalf("默认应有 3 条告警规则, 实际 %d", len(defaults.Alerts))
	}
	if !defaults.Alerts[0].IsEnabled || defaults.Alerts[1].IsEnabled || defaults.Alerts[2].IsEnabled {
		t.Fatalf("默认仅 106k 规则启用: %+v", defaults.Alerts)
	}
}

func TestAggregateJSONFieldNames(t *testing.T) {
	payload, err := json.Marshal(Defaults())
	if err != nil {
		t.Fatalf("序列化失败: %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		t.Fatalf("反序列化失败: %v", err)
	}
	if _, ok := raw["settings"]; !ok {
		t.Fatalf("缺少 settings 字段: %s", payload)
	}
	if _, ok := raw["alerts"]; !ok {
		t.Fatalf("缺少 alerts 字段: %s", payload)
	}

	var alerts []map[string]json.RawMessage
	if err := json.Unmarshal(raw["alerts"], &alerts); err != nil {
		t.Fatalf("解析 alerts 失败: %v", err)
	}
	for _, key := range []string{"id", "btcThreshold", "isEnabled"} {
		if _, ok := alerts[0][key]; !ok {
			t.Fatalf("告警规则缺少 %s 字段: %s", key, payload)
		}
	}
}

func TestMemoryStoreRoundtrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.Load(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("空存储应返回 ErrNotFound, 实际 %v", err)
	}

	saved := Defaults()
	saved.Settings.Email = "user@example.com"
	if err := store.Save(ctx, saved); err != nil {
		t.Fatalf("保存失败: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if loaded.Settings.Email != "user@example.com" {
		t.Fatalf("聚合应整体替换, email 实际 %s", loaded.Settings.Email)
	}
}

func TestRepositoryNotConfigured(t *testing.T) {
	repo := NewRepository(nil)
	if _, err := repo.Load(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("未配置连接池应返回 ErrNotConfigured, 实际 %v", err)
	}
	if err := repo.Save(context.Background(), Defaults()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("未配置连接池应返回 ErrNotConfigured, 实际 %v", err)
	}
}
