package rfmodel

// Spline coefficients below are tabulated from DW1000 hardware
// calibration runs, keyed by bandwidth (500/900 MHz) and PRF (16/64 MHz).
// Each piece covers the half-open interval (Lo, Hi] in dBm.

var timeCompSpline = map[int]map[int]Spline{
	500: {
		16: {
			{-95.0, -89.0, 476.22643132772447, 10.498752594720335, 0.05540904375134925},
			{-89.0, -81.0, 654.0804983431934, 14.49547277977005, 0.0778625255433889},
			{-81.0, -75.0, -229.16303620413078, -7.313007847954822, -0.05675771465178503},
			{-75.0, -69.0, -24.46102846149239, -1.8542881911147218, -0.02036625396249292},
			{-69.0, -61.0, -78.59161148160769, -3.4232911289774517, -0.03173584431482546},
		},
		64: {
			{-105.0, -91.0, 61.439812150901005, 1.3418106477809877, 0.005982995146544212},
			{-91.0, -81.0, 191.34215768288774, 4.196806610428823, 0.021669782617599553},
			{-81.0, -75.0, 440.94876334122876, 10.359931569763607, 0.05971375699301895},
			{-75.0, -67.0, -253.70626375667266, -8.164201085409243, -0.06378045129332577},
			{-67.0, -55.0, -19.17301348586056, -1.1632092684998827, -0.011534249189049994},
		},
	},
	900: {
		16: {
			{-95.0, -89.0, 195.74173780744627, 3.8534533540981126, 0.014271244395981597},
			{-89.0, -81.0, 969.389649037234, 21.23879931204284, 0.11194172524583035},
			{-81.0, -75.0, -84.85331251197003, -4.791890579990105, -0.04874154242191908},
			{-75.0, -69.0, 51.089929314753064, -1.1667373171059765, -0.024573852989647094},
			{-69.0, -61.0, -102.03262134917657, -5.6050717524128135, -0.056735694081496035},
		},
		64: {
			{-105.0, -93.0, 218.7397242426187, 4.198261039857095, 0.016587764244901493},
			{-93.0, -83.0, 147.69729139335806, 2.6704676069778817, 0.008373825485012976},
			{-83.0, -75.0, 751.6574783072042, 17.223724348174265, 0.09604404210335793},
			{-75.0, -69.0, 66.43800638064444, -1.048794001702141, -0.025772740804228533},
			{-69.0, -63.0, -159.7241124813689, -7.60421788039967, -0.07327581340592948},
			{-63.0, -55.0, 4.065332228624562, -2.4045534451922137, -0.03200863918904773},
		},
	},
}

var distCompSpline = map[int]map[int]Spline{
	500: {
		16: {
			{-95.0, -89.0, 446.8684032336355, 9.85153384886164, 0.051993231112440697},
			{-89.0, -81.0, 613.7582642483305, 13.601867408226155, 0.07306251852571943},
			{-81.0, -75.0, -215.03577569855327, -6.862181359273789, -0.05325876022234244},
			{-75.0, -69.0, -22.953074443104942, -1.7399765082089482, -0.019110731344085252},
			{-69.0, -61.0, -73.74665835415497, -3.2122548014502623, -0.02977941823744068},
		},
		64: {
			{-105.0, -91.0, 57.65221950050323, 1.2590917726764277, 0.005614160222583764},
			{-91.0, -81.0, 179.546448601439, 3.938085216005312, 0.020333901101963092},
			{-81.0, -75.0, 413.76550485191035, 9.72127075198824, 0.056032570817557636},
			{-75.0, -67.0, -238.06598188855017, -7.660900913339757, -0.05984856478355027},
			{-67.0, -55.0, -17.991050806895178, -1.091500669108013, -0.010823194973080152},
		},
	},
	900: {
		16: {
			{-95.0, -89.0, 183.67480691132866, 3.6158987280067723, 0.013391462077503746},
			{-89.0, -81.0, 909.6294873191769, 19.92948671225841, 0.10504083084258342},
			{-81.0, -75.0, -79.62234302197686, -4.496483922533177, -0.0457367625993812},
			{-75.0, -69.0, 47.94037800579669, -1.094811223380935, -0.023058943654632458},
			{-69.0, -61.0, -95.74259549796217, -5.259534749105479, -0.05323809715869743},
		},
		64: {
			{-105.0, -93.0, 205.2550317787694, 3.9394499839253396, 0.01556517495401355},
			{-93.0, -83.0, 138.59216629969663, 2.505840744895793, 0.007857602554773635},
			{-83.0, -75.0, 705.3198961957823, 16.161929894874312, 0.09012319542025327},
			{-75.0, -69.0, 62.34228902955281, -0.9841387836348634, -0.024183923387127493},
			{-69.0, -63.0, -149.87756749129332, -7.135439107361107, -0.06875856436833949},
			{-63.0, -55.0, 3.8147158622732773, -2.2563194477618973, -0.030035396070342557},
		},
	},
}

var rxLevelSpline = map[int]Spline{
	16: {
		{-40.0, 14.4, 0.0031078824982508266, 0.9946676633232663, 0.0009046309413235365},
		{14.4, 16.7, 32.90020098562278, -3.5753769831047637, 0.15961952375075705},
		{16.7, 19.375, 78.28690272560803, -9.011495790881899, 0.32239527802153234},
		{19.375, 26.6, -48.67100367625461, 4.094594808374672, -0.015839400502056122},
	},
	64: {
		{-40.0, 14.45, 0.10914877594166128, 0.9337929031481064, 0.005682419820392526},
		{14.45, 22.45, 1.5410781009601724, 0.72322284247101, 0.013412421608872349},
		{22.45, 24.375, 344.1982254294007, -29.807657288333957, 0.6934898000860408},
		{24.375, 28.85, 957.3183685061152, -80.11393828848666, 1.7253933194935},
	},
}
