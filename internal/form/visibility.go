package form

import "strings"

/*
LEARNING: Conditional sections

Each group owns a trigger control and the controls it shows or hides.
Groups are independent and idempotent, so after a bulk restore every group
is replayed in order. During editing only the groups whose trigger changed
need to run.
*/
type rule struct {
	group   string
	trigger string
	apply   func(f *Form, group string)
}

// Rules is the visibility collaborator for one form
type Rules struct {
	form  *Form
	rules []rule
}

var (
	cablingSections = []string{
		"q1_categoria_cab", "q1_blindado", "q1_novo_patch_panel", "q1_incluir_guia",
		"q1_qtd_pontos_rede", "q1_qtd_cabos", "q1_qtd_portas_patch_panel", "q1_qtd_patch_cords",
		"q1_marca_cab", "q1_modelo_patch_panel", "q1_qtd_guias_cabos", "q1_patch_cords_modelo",
		"q1_patch_cords_cor", "q1_patch_panel_existente_nome",
		"q3_tipo_fibra", "q3_qtd_fibras_por_cabo", "q3_tipo_conector", "q3_novo_dio",
		"q3_caixa_terminacao", "q3_tipo_cabo_optico", "q3_caixa_emenda", "q3_qtd_cabos",
		"q3_tamanho_total_m", "q3_qtd_fibras", "q3_qtd_portas_dio", "q3_qtd_cordoes_opticos",
		"q3_marca_cab_optico", "q3_modelo_dio", "q3_modelo_cordao_optico", "q3_observacoes",
	}
	cameraSections = []string{
		"q4_camera", "q4_nvr_dvr", "q4_conversor_midia", "q4_gbic",
		"q4_conversor_midia_modelo", "q4_gbic_modelo", "q4_camera_nova", "q4_camera_modelo",
		"q4_camera_qtd", "q4_camera_fornecedor", "q4_nvr_dvr_modelo",
	}
)

// NewRules wires the standard groups to f
func NewRules(f *Form) *Rules {
	return &Rules{form: f, rules: []rule{
		{group: "tipo_formulario", trigger: FieldFormType, apply: applyFormType},
		{group: "patch_panel", trigger: "q1_novo_patch_panel", apply: toggle("q1_novo_patch_panel",
			[]string{"q1_modelo_patch_panel", "q1_qtd_portas_patch_panel"},
			[]string{"q1_patch_panel_existente_nome"})},
		{group: "guia_cabos", trigger: "q1_incluir_guia", apply: toggle("q1_incluir_guia",
			[]string{"q1_qtd_guias_cabos"}, nil)},
		{group: "switch", trigger: "q2_novo_switch", apply: toggle("q2_novo_switch",
			[]string{"q2_fornecedor_switch", "q2_modelo_switch", "q2_switch_foto_url"},
			[]string{"q2_switch_existente_nome"})},
		{group: "dio", trigger: "q3_novo_dio", apply: toggle("q3_novo_dio",
			[]string{"q3_modelo_dio", "q3_qtd_portas_dio"}, nil)},
		{group: "camera", trigger: "q4_camera", apply: toggle("q4_camera",
			[]string{"q4_camera_nova", "q4_camera_modelo", "q4_camera_qtd", "q4_camera_fornecedor"}, nil)},
		{group: "nvr_dvr", trigger: "q4_nvr_dvr", apply: toggle("q4_nvr_dvr",
			[]string{"q4_nvr_dvr_modelo"}, nil)},
		{group: "conversor_midia", trigger: "q4_conversor_midia", apply: toggle("q4_conversor_midia",
			[]string{"q4_conversor_midia_modelo"}, nil)},
		{group: "gbic", trigger: "q4_gbic", apply: toggle("q4_gbic",
			[]string{"q4_gbic_modelo"}, nil)},
		{group: "eletrocalha", trigger: "q5_nova_eletrocalha", apply: toggle("q5_nova_eletrocalha",
			[]string{"q5_eletrocalha_modelo", "q5_eletrocalha_qtd"}, nil)},
		{group: "eletroduto", trigger: "q5_novo_eletroduto", apply: toggle("q5_novo_eletroduto",
			[]string{"q5_eletroduto_modelo", "q5_eletroduto_qtd"}, nil)},
		{group: "rack", trigger: "q5_novo_rack", apply: toggle("q5_novo_rack",
			[]string{"q5_rack_modelo", "q5_rack_qtd"}, nil)},
		{group: "nobreak", trigger: "q5_nobreak", apply: toggle("q5_nobreak",
			[]string{"q5_nobreak_modelo", "q5_nobreak_qtd"}, nil)},
		{group: "serralheria", trigger: "q5_serralheria", apply: toggle("q5_serralheria",
			[]string{"q5_serralheria_descricao"}, nil)},
		{group: "instalacao_eletrica", trigger: "q5_instalacao_eletrica", apply: toggle("q5_instalacao_eletrica",
			[]string{"q5_instalacao_eletrica_obs"}, nil)},
		{group: "plataforma", trigger: "pre_plataforma", apply: toggle("pre_plataforma",
			[]string{"pre_plataforma_modelo", "pre_plataforma_dias"}, nil)},
	}}
}

// Groups lists the groups in replay order; the form type goes first
func (r *Rules) Groups() []string {
	out := make([]string, len(r.rules))
	for i, rl := range r.rules {
		out[i] = rl.group
	}
	return out
}

// Apply re-derives one group. Unknown groups are ignored.
func (r *Rules) Apply(group string) {
	for _, rl := range r.rules {
		if rl.group == group {
			rl.apply(r.form, rl.group)
			return
		}
	}
}

// ApplyAll replays every group
func (r *Rules) ApplyAll() {
	for _, rl := range r.rules {
		rl.apply(r.form, rl.group)
	}
}

// Triggered returns the groups driven by a control
func (r *Rules) Triggered(field string) []string {
	var out []string
	for _, rl := range r.rules {
		if rl.trigger == field {
			out = append(out, rl.group)
		}
	}
	return out
}

func applyFormType(f *Form, group string) {
	cameras := strings.EqualFold(strings.TrimSpace(f.Value(FieldFormType)), TypeCameras)
	f.setHidden(group, cablingSections, cameras)
	f.setHidden(group, cameraSections, !cameras)
}

// toggle shows `on` and hides `off` while the checkbox is checked, and the
// reverse otherwise
func toggle(trigger string, on, off []string) func(f *Form, group string) {
	return func(f *Form, group string) {
		checked := f.Checked(trigger)
		f.setHidden(group, on, !checked)
		f.setHidden(group, off, checked)
	}
}
